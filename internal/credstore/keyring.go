package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringBackend keeps secrets in the OS credential store (macOS Keychain,
// Windows Credential Manager, Secret Service or KWallet).
type KeyringBackend struct {
	ring keyring.Keyring
}

var _ SecretBackend = (*KeyringBackend)(nil)

// NewKeyringBackend wraps an opened keyring.
func NewKeyringBackend(ring keyring.Keyring) *KeyringBackend {
	return &KeyringBackend{ring: ring}
}

// OpenKeyring opens the OS keyring for service. Only native backends are
// allowed; hosts without one should use FileSecretBackend.
func OpenKeyring(service string) (*KeyringBackend, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
		},
		KeychainTrustApplication: true,
		LibSecretCollectionName:  "login",
		KWalletAppID:             service,
		KWalletFolder:            service,
		WinCredPrefix:            service,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringBackend(ring), nil
}

func (k *KeyringBackend) GetSecret(ctx context.Context, key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (k *KeyringBackend) SetSecret(ctx context.Context, key, value string) error {
	return k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "ghgate " + key,
	})
}

func (k *KeyringBackend) DeleteSecret(ctx context.Context, key string) error {
	err := k.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
