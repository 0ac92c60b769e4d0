package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keyFileName = ".snapshot.key"
	keySize     = 32 // 256-bit key for the snapshot database
)

// FileKeyProvider stores the snapshot database key in a hidden file
// with 0600 permissions.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a key provider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, keyFileName)}
}

// EnsureKey returns the stored key, generating and persisting a new one
// on first use.
func (p *FileKeyProvider) EnsureKey() ([]byte, error) {
	if key, err := p.readKey(); err == nil {
		return key, nil
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating snapshot key: %w", err)
	}
	if err := p.storeKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (p *FileKeyProvider) readKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

func (p *FileKeyProvider) storeKey(key []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("writing snapshot key: %w", err)
	}
	return nil
}
