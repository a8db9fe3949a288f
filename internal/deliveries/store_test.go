package deliveries

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "deliveries.db")
	s, err := Open(context.Background(), "sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, models.Delivery{ID: "d1", RunID: "r1", Event: "push", Ref: "refs/heads/master", StatusCode: 200, Processed: 2, ReceivedAt: base}))
	require.NoError(t, s.Record(ctx, models.Delivery{ID: "d2", RunID: "r2", Event: "push", Ref: "refs/heads/dev", StatusCode: 203, ReceivedAt: base.Add(time.Minute)}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d2", got[0].ID)
	assert.Equal(t, 203, got[0].StatusCode)
	assert.Equal(t, "d1", got[1].ID)
	assert.Equal(t, 2, got[1].Processed)
	assert.True(t, base.Equal(got[1].ReceivedAt))

	got, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordRedeliveryReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Record(ctx, models.Delivery{ID: "d1", RunID: "r1", Event: "push", StatusCode: 502, ReceivedAt: now}))
	require.NoError(t, s.Record(ctx, models.Delivery{ID: "d1", RunID: "r2", Event: "push", StatusCode: 200, Errors: 1, ReceivedAt: now.Add(time.Second)}))

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].RunID)
	assert.Equal(t, 200, got[0].StatusCode)
	assert.Equal(t, 1, got[0].Errors)
}
