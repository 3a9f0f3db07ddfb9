// Package vault manages the local key that seals persisted tokens and
// persistent cache entries. The key never leaves the data directory.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"

	cryptohelper "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/crypto"
)

const fileName = "vault.key"

var (
	ErrExists        = errors.New("vault key already exists")
	ErrInvalidLength = errors.New("invalid key length")
)

// Vault is a key file inside a data directory.
type Vault struct {
	dir string
}

func New(dir string) *Vault {
	return &Vault{dir: dir}
}

// Path returns the key file location.
func (v *Vault) Path() string {
	return filepath.Join(v.dir, fileName)
}

// Exists checks if the key file exists.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.Path())
	return err == nil
}

// Generate creates and stores a new random key.
func (v *Vault) Generate() ([]byte, error) {
	if v.Exists() {
		return nil, ErrExists
	}
	key := make([]byte, cryptohelper.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := v.save(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Load reads the key from disk.
func (v *Vault) Load() ([]byte, error) {
	b, err := os.ReadFile(v.Path())
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, err
	}
	if len(key) != cryptohelper.KeySize {
		return nil, ErrInvalidLength
	}
	return key, nil
}

// Sealer loads the key, generating it on first use.
func (v *Vault) Sealer() (*cryptohelper.Sealer, error) {
	key, err := v.Load()
	if errors.Is(err, os.ErrNotExist) {
		key, err = v.Generate()
	}
	if err != nil {
		return nil, err
	}
	return cryptohelper.NewSealer(key)
}

// Destroy removes the key. Anything sealed with it becomes unreadable.
func (v *Vault) Destroy() error {
	err := os.Remove(v.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (v *Vault) save(key []byte) error {
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(v.Path(), []byte(base64.StdEncoding.EncodeToString(key)), 0600)
}
