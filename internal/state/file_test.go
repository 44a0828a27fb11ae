package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/Moneta/pkg/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewFileStore(path, nil)

	st := models.FreshState()
	st.Quota.DayKey = "2026-08-29"
	st.Quota.RequestsToday = 3
	st.Quota.SportsUpdatedToday = []string{"soccer_epl"}
	st.Emergency.Mode = models.ModeEmergency

	require.NoError(t, s.Save(ctx, st))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, loaded)
}

func TestFileStoreMissingFileIsFreshState(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), nil)

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FreshState(), loaded)
}

func TestFileStoreCorruptBlobIsFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, nil)
	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FreshState(), loaded)
}

func TestFileStoreSchemaMismatchIsFreshState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 99}`), 0o644))

	s := NewFileStore(path, nil)
	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.FreshState(), loaded)
}
