package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the API key in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a keyring store for service. An empty user
// defaults to "default".
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("keyring service is required")
	}
	if user == "" {
		user = "default"
	}
	return &KeyringStore{service: service, user: user}, nil
}

// SaveKey implements KeyStore.
func (k *KeyringStore) SaveKey(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if err := keyring.Set(k.service, k.user, key); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	return nil
}

// LoadKey implements KeyStore.
func (k *KeyringStore) LoadKey(_ context.Context) (string, error) {
	key, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to retrieve API key from keyring: %w", err)
	}
	return key, nil
}

// DeleteKey implements KeyStore.
func (k *KeyringStore) DeleteKey(_ context.Context) error {
	if err := keyring.Delete(k.service, k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete API key from keyring: %w", err)
	}
	return nil
}

// Service returns the keyring service name.
func (k *KeyringStore) Service() string {
	return k.service
}

// User returns the keyring user name.
func (k *KeyringStore) User() string {
	return k.user
}
