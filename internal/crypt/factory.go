package crypt

import (
	"fmt"

	"wsync-go/internal/config"
	"wsync-go/internal/ws"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Returns nil (no encryption) for type "none" or empty.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (ws.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
