package filechannel

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueAppendPreservesCallOrder(t *testing.T) {
	q := NewQueue(t.TempDir())

	require.NoError(t, q.Append(ClearRequest()))
	require.NoError(t, q.Append(AddNotesRequest([]Note{{MIDI: 60, Duration: 1, Velocity: 0.8}})))
	require.NoError(t, q.Append(DeleteNotesRequest([]NoteRef{{MIDI: 60, Time: 0}})))

	reqs, err := q.Read()
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	require.Equal(t, ActionClear, reqs[0].Action())
	require.Equal(t, ActionAddNotes, reqs[1].Action())
	require.Equal(t, ActionDeleteNotes, reqs[2].Action())
}

func TestQueueAppendAfterManualDeletionStartsFresh(t *testing.T) {
	q := NewQueue(t.TempDir())

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Append(ClearRequest()))
	}
	require.NoError(t, os.Remove(q.Path()))
	require.NoError(t, q.Append(AddChordRequest(2, 1, []ChordNote{{MIDI: 57, Velocity: 0.8}})))

	reqs, err := q.Read()
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, ActionAddChord, reqs[0].Action())
	require.Equal(t, json.Number("2"), reqs[0]["time"])
}

func TestQueueAppendListKeepsOrder(t *testing.T) {
	q := NewQueue(t.TempDir())

	require.NoError(t, q.Append(ClearRequest(), AddNotesRequest([]Note{{MIDI: 64, Duration: 0.5}})))

	data, err := os.ReadFile(q.Path())
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"action":"clear"},
		{"action":"add_notes","notes":[{"midi":64,"duration":0.5,"time":0,"velocity":0}]}
	]`, string(data))
}

func TestQueueAppendTreatsCorruptFileAsEmpty(t *testing.T) {
	q := NewQueue(t.TempDir())
	require.NoError(t, os.WriteFile(q.Path(), []byte("{not json"), 0o644))

	require.NoError(t, q.Append(ClearRequest()))

	reqs, err := q.Read()
	require.NoError(t, err)
	require.Len(t, reqs, 1)
}

func TestQueuePromotesSingleObject(t *testing.T) {
	q := NewQueue(t.TempDir())
	require.NoError(t, os.WriteFile(q.Path(), []byte(`{"action":"clear"}`), 0o644))

	require.NoError(t, q.Append(ClearRequest()))

	reqs, err := q.Read()
	require.NoError(t, err)
	require.Len(t, reqs, 2)
}

func TestQueueClearIsIdempotent(t *testing.T) {
	q := NewQueue(t.TempDir())

	require.NoError(t, q.Clear())
	require.NoError(t, q.Append(ClearRequest()))
	require.True(t, q.Exists())
	require.NoError(t, q.Clear())
	require.False(t, q.Exists())
	require.NoError(t, q.Clear())
}

func TestQueueAppendNothingIsNoop(t *testing.T) {
	q := NewQueue(t.TempDir())
	require.NoError(t, q.Append())
	require.False(t, q.Exists())
}
