package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/pkg/utils"
)

// FileStore keeps the session in a single file. Saves go through a temp file
// in the same directory and a rename, so a crash never leaves a half-written
// session behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (*domain.SessionState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file %s: %w", s.path, err)
	}
	return decode(data)
}

func (s *FileStore) Save(_ context.Context, state *domain.SessionState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.path, data, 0o600)
}
