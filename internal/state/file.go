// Package state persists the single versioned state blob behind the
// StateStore contract. A missing or unparsable blob always loads as
// fresh state; losing counters is recoverable, crashing on startup is
// not.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// FileStore keeps the blob in a single JSON file. Writes go through a
// temp file and rename so a crash mid-write never corrupts the blob.
type FileStore struct {
	path string
	log  *logrus.Entry
	mu   sync.Mutex
}

var _ contracts.StateStore = (*FileStore)(nil)

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileStore{
		path: path,
		log:  logger.WithField("component", "state"),
	}
}

// Load reads the persisted blob. Missing file or parse failure yields
// fresh state, never an error.
func (s *FileStore) Load(ctx context.Context) (*models.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return models.FreshState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st models.PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("state blob unparsable, starting fresh")
		return models.FreshState(), nil
	}
	if st.SchemaVersion != models.SchemaVersion {
		s.log.WithFields(logrus.Fields{
			"found":    st.SchemaVersion,
			"expected": models.SchemaVersion,
		}).Warn("state schema version mismatch, starting fresh")
		return models.FreshState(), nil
	}
	return &st, nil
}

// Save writes the blob atomically.
func (s *FileStore) Save(ctx context.Context, st *models.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
