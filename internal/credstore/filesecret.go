package credstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"
	"gopkg.in/yaml.v3"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
	saltLength       = 16
)

// secretFile is the on-disk layout. The salt is per file; every value is
// sealed separately with its own nonce.
type secretFile struct {
	Salt   string            `yaml:"salt"`
	Values map[string]string `yaml:"values"`
}

// FileSecretBackend keeps secrets in an AES-GCM encrypted file, for hosts
// without an OS keyring.
type FileSecretBackend struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

var _ SecretBackend = (*FileSecretBackend)(nil)

// NewFileSecretBackend creates a backend at path. The passphrase must be
// non-empty and stable across runs.
func NewFileSecretBackend(path, passphrase string) (*FileSecretBackend, error) {
	if passphrase == "" {
		return nil, errors.New("file secret backend requires a passphrase")
	}
	return &FileSecretBackend{path: path, passphrase: []byte(passphrase)}, nil
}

func (b *FileSecretBackend) GetSecret(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.read()
	if err != nil {
		return "", err
	}
	sealed, ok := file.Values[key]
	if !ok {
		return "", ErrNotFound
	}
	return b.decrypt(file.Salt, sealed)
}

func (b *FileSecretBackend) SetSecret(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.read()
	if err != nil {
		return err
	}
	if file.Salt == "" {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return err
		}
		file.Salt = base64.StdEncoding.EncodeToString(salt)
	}

	sealed, err := b.encrypt(file.Salt, value)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	file.Values[key] = sealed
	return b.write(file)
}

func (b *FileSecretBackend) DeleteSecret(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.read()
	if err != nil {
		return err
	}
	if _, ok := file.Values[key]; !ok {
		return nil
	}
	delete(file.Values, key)
	if len(file.Values) == 0 {
		if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return b.write(file)
}

func (b *FileSecretBackend) key(salt string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	return pbkdf2.Key(b.passphrase, raw, pbkdf2Iterations, keyLength, sha256.New), nil
}

func (b *FileSecretBackend) gcm(salt string) (cipher.AEAD, error) {
	key, err := b.key(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (b *FileSecretBackend) encrypt(salt, plaintext string) (string, error) {
	gcm, err := b.gcm(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (b *FileSecretBackend) decrypt(salt, sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	gcm, err := b.gcm(salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret (wrong passphrase?): %w", err)
	}
	return string(plaintext), nil
}

func (b *FileSecretBackend) read() (*secretFile, error) {
	file := &secretFile{Values: make(map[string]string)}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return file, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	if file.Values == nil {
		file.Values = make(map[string]string)
	}
	return file, nil
}

func (b *FileSecretBackend) write(file *secretFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data)
}
