package filechannel

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadStateMissing(t *testing.T) {
	_, ok, err := ReadState(t.TempDir())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(StatePath(dir), []byte(`{"ppq":96,"notes":[{"midi":60,"time":0}]}`), 0o644))

	state, ok, err := ReadState(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 96, state.PPQ)
	require.Len(t, state.Notes, 1)
}

func TestReadStateMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(StatePath(dir), []byte(`nope`), 0o644))

	_, _, err := ReadState(dir)
	require.ErrorIs(t, err, ErrMalformed)
}
