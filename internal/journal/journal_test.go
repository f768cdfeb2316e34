package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	base := time.UnixMicro(1_700_000_000_000_000)
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, Entry{
		ID:        "a",
		Action:    "transport.start",
		StartedAt: base,
		Success:   true,
		Latency:   15 * time.Millisecond,
		Response:  map[string]any{"success": true},
	}))
	require.NoError(t, j.Record(ctx, Entry{
		ID:        "b",
		Action:    "mixer.setTrackVolume",
		Params:    map[string]any{"track": 1.0, "volume": 0.5},
		StartedAt: base.Add(time.Second),
		Error:     "timeout after 2s, verify DAW running and controller enabled",
		Failure:   "timeout",
		Latency:   2 * time.Second,
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "b", entries[0].ID)
	require.False(t, entries[0].Success)
	require.Equal(t, "timeout", entries[0].Failure)
	require.Equal(t, map[string]any{"track": 1.0, "volume": 0.5}, entries[0].Params)
	require.Equal(t, 2*time.Second, entries[0].Latency)

	require.Equal(t, "a", entries[1].ID)
	require.True(t, entries[1].Success)
	require.Equal(t, map[string]any{}, entries[1].Params)
	require.Equal(t, base, entries[1].StartedAt)
}

func TestRecentLimitAndPrune(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{
			ID:        fmt.Sprintf("id-%d", i),
			Action:    "transport.getStatus",
			StartedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "id-4", entries[0].ID)
	require.Equal(t, "id-3", entries[1].ID)

	removed, err := j.Prune(ctx, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	entries, err = j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "id-2", entries[2].ID)
}

func TestRecordDuplicateID(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, Entry{ID: "x", Action: "a", StartedAt: time.Now()}))
	require.Error(t, j.Record(ctx, Entry{ID: "x", Action: "a", StartedAt: time.Now()}))
}
