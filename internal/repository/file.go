package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"finalscore/bot/internal/models"

	"github.com/rs/zerolog/log"
)

// FileStore keeps the baseline in a CSV file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a baseline store backed by the CSV file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the baseline file. A missing file is an empty baseline.
func (s *FileStore) Load(ctx context.Context) ([]models.GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.GameRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline file: %w", err)
	}
	defer f.Close()

	return decodeBaseline(f, s.path)
}

// Save writes the baseline to a temp file and renames it over the old one
func (s *FileStore) Save(ctx context.Context, games []models.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp baseline file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := encodeBaseline(tmp, games); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp baseline file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace baseline file: %w", err)
	}

	log.Debug().Str("path", s.path).Int("games", len(games)).Msg("Baseline file saved")
	return nil
}

// Clear removes the baseline file
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove baseline file: %w", err)
	}
	return nil
}
