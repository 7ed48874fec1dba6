package ws

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

// workspaceSlug derives a url-safe slug from the workspace name, suffixing
// a counter when the owner already has a workspace with that slug.
func workspaceSlug(ctx context.Context, store Store, ownerID, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "workspace"
	}

	candidate := base
	for i := 2; ; i++ {
		existing, err := store.GetWorkspaceBySlug(ctx, ownerID, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
