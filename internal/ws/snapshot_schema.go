package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema constrains the snapshot document shape before a restore is
// allowed to wipe local state. A malformed snapshot must fail here, not
// halfway through the replace.
const snapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "user_id", "workspaces", "files"],
  "properties": {
    "schema_version": {"const": 1},
    "user_id": {"type": "string", "minLength": 1},
    "created_at": {"type": "string"},
    "workspaces": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "owner_id", "name", "slug"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "owner_id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "slug": {"type": "string"}
        }
      }
    },
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "workspace_id", "path", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "workspace_id": {"type": "string", "minLength": 1},
          "path": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "is_directory": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	snapshotSchemaOnce     sync.Once
	snapshotSchemaCompiled *jsonschema.Schema
	snapshotSchemaErr      error
)

func compiledSnapshotSchema() (*jsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("snapshot.json", bytes.NewReader([]byte(snapshotSchema))); err != nil {
			snapshotSchemaErr = err
			return
		}
		snapshotSchemaCompiled, snapshotSchemaErr = compiler.Compile("snapshot.json")
	})
	return snapshotSchemaCompiled, snapshotSchemaErr
}

// validateSnapshotJSON checks raw snapshot bytes against the schema.
func validateSnapshotJSON(raw []byte) error {
	schema, err := compiledSnapshotSchema()
	if err != nil {
		return fmt.Errorf("compiling snapshot schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("snapshot failed validation: %w", err)
	}
	return nil
}
