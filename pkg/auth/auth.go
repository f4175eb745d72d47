// Package auth stores and resolves the API key used by the cluster gateway.
//
// A key comes from the environment first (CEPHCLI_API_KEY by default) and
// then from a KeyStore, normally the OS keyring.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// DefaultEnvVar holds the API key when set.
const DefaultEnvVar = "CEPHCLI_API_KEY"

// ErrKeyNotFound is returned when no API key is stored.
var ErrKeyNotFound = errors.New("API key not found")

// KeyStore persists one API key.
type KeyStore interface {
	// SaveKey stores key, replacing any previous key.
	SaveKey(ctx context.Context, key string) error
	// LoadKey returns the stored key or ErrKeyNotFound.
	LoadKey(ctx context.Context) (string, error)
	// DeleteKey removes the stored key. Deleting a missing key succeeds.
	DeleteKey(ctx context.Context) error
}

// ResolveAPIKey returns the key from envVar when set, or from store.
// A nil store only consults the environment.
func ResolveAPIKey(ctx context.Context, envVar string, store KeyStore) (string, error) {
	if envVar != "" {
		if value := os.Getenv(envVar); value != "" {
			return value, nil
		}
	}

	if store == nil {
		return "", ErrKeyNotFound
	}

	key, err := store.LoadKey(ctx)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to load API key: %w", err)
	}
	return key, nil
}
