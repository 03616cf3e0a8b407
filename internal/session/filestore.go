package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	tokenFileName    = "token"
	identityFileName = "identity.json"
)

// FileStore keeps the two session slots as files under a state directory,
// mode 0600.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Load(_ context.Context) (string, []byte, error) {
	token, err := os.ReadFile(filepath.Join(s.dir, tokenFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("session: read token slot: %w", err)
	}
	identity, err := os.ReadFile(filepath.Join(s.dir, identityFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", nil, fmt.Errorf("session: read identity slot: %w", err)
	}
	return string(token), identity, nil
}

func (s *FileStore) Save(_ context.Context, token string, identity []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("session: create state dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, tokenFileName), []byte(token), 0o600); err != nil {
		return fmt.Errorf("session: write token slot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, identityFileName), identity, 0o600); err != nil {
		return fmt.Errorf("session: write identity slot: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	for _, name := range []string{tokenFileName, identityFileName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session: clear %s slot: %w", name, err)
		}
	}
	return nil
}
