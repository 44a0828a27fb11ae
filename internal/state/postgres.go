package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

// PostgresStore keeps the blob in a single row. The id column is fixed
// at 1 so Save is a plain upsert.
type PostgresStore struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ contracts.StateStore = (*PostgresStore)(nil)

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PostgresStore{
		db:  db,
		log: logger.WithField("component", "state"),
	}
}

// EnsureSchema creates the state table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS moneta_state (
			id         INT PRIMARY KEY,
			blob       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Load reads the persisted blob. A missing row or unparsable blob
// yields fresh state.
func (s *PostgresStore) Load(ctx context.Context) (*models.PersistedState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM moneta_state WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return models.FreshState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state row: %w", err)
	}

	var st models.PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WithError(err).Warn("state blob unparsable, starting fresh")
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

// Save upserts the blob into the single state row.
func (s *PostgresStore) Save(ctx context.Context, st *models.PersistedState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	query := `
		INSERT INTO moneta_state (id, blob, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, data); err != nil {
		return fmt.Errorf("save state row: %w", err)
	}
	return nil
}
