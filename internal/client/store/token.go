package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/suitewaste/internal/filex"
)

// TokenStore keeps the current session token outside the database so it can
// be read without opening a transaction.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single owner-readable file.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (f *FileTokenStore) Get() (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (f *FileTokenStore) Set(token string) error {
	return filex.WriteFileAtomic(f.path, []byte(token), 0o600)
}

func (f *FileTokenStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func (m *MemoryTokenStore) Get() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Set("")
}
