package pianoroll

import (
	"context"
	"errors"
	"testing"

	"github.com/rbright/flmcp/internal/dawsim"
	"github.com/rbright/flmcp/internal/filechannel"
	"github.com/rbright/flmcp/internal/trigger"
	"github.com/stretchr/testify/require"
)

func TestSendNotesReplaceQueuesClearFirst(t *testing.T) {
	dir := t.TempDir()
	editor := New(dir, trigger.Unsupported{Platform: "linux"}, nil)

	result, err := editor.SendNotes(context.Background(), []filechannel.Note{{MIDI: 60, Duration: 1, Velocity: 0.8}}, true, false)
	require.NoError(t, err)
	require.False(t, result.Requested)
	require.Empty(t, result.Suffix())

	pending, err := editor.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, filechannel.ActionClear, pending[0].Action())
	require.Equal(t, filechannel.ActionAddNotes, pending[1].Action())
}

func TestEditorAppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	editor := New(dir, nil, nil)
	ctx := context.Background()

	_, err := editor.SendChord(ctx, []int{60, 64, 67}, 0, 1, 0.8, false)
	require.NoError(t, err)
	_, err = editor.DeleteNotes(ctx, []filechannel.NoteRef{{MIDI: 60}}, false)
	require.NoError(t, err)
	_, err = editor.Clear(ctx, false)
	require.NoError(t, err)

	pending, err := editor.Pending()
	require.NoError(t, err)
	require.Equal(t, []string{filechannel.ActionAddChord, filechannel.ActionDeleteNotes, filechannel.ActionClear}, []string{
		pending[0].Action(), pending[1].Action(), pending[2].Action(),
	})

	require.NoError(t, editor.ClearQueue())
	require.NoError(t, editor.ClearQueue())
	pending, err = editor.Pending()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestEditorRejectsEmptyInput(t *testing.T) {
	editor := New(t.TempDir(), nil, nil)
	ctx := context.Background()

	_, err := editor.SendNotes(ctx, nil, false, false)
	require.EqualError(t, err, "no notes provided")
	_, err = editor.SendChord(ctx, nil, 0, 1, 0.8, false)
	require.EqualError(t, err, "no MIDI notes provided")
	_, err = editor.SendChord(ctx, []int{200}, 0, 1, 0.8, false)
	require.Error(t, err)
	_, err = editor.DeleteNotes(ctx, nil, false)
	require.EqualError(t, err, "no notes specified for deletion")
}

func TestAutoTriggerRunsScriptAndAnnotatesState(t *testing.T) {
	dir := t.TempDir()
	script := dawsim.NewPianoRollScript(dir, nil)
	editor := New(dir, script.Trigger(), nil)

	result, err := editor.SendNotes(context.Background(), []filechannel.Note{
		{MIDI: 60, Duration: 1, Velocity: 0.8},
		{MIDI: 64, Duration: 1, Velocity: 0.8},
	}, false, true)
	require.NoError(t, err)
	require.True(t, result.Fired())
	require.Equal(t, " FL Studio triggered successfully.", result.Suffix())

	state, ok, err := editor.State()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, state.Notes, 2)
	require.Equal(t, "C4", state.Notes[0]["note_name"])
	require.Equal(t, "E4", state.Notes[1]["note_name"])

	info := editor.Info()
	require.True(t, info.AutoTriggerSupported)
	require.False(t, info.RequestFileExists)
	require.True(t, info.StateFileExists)
}

func TestTriggerResultSuffixes(t *testing.T) {
	unsupported := New(t.TempDir(), trigger.Unsupported{Platform: "linux"}, nil).Trigger(context.Background())
	require.False(t, unsupported.Supported)
	require.Equal(t, " Auto-trigger not supported on linux. Press the trigger key manually.", unsupported.Suffix())

	failing := trigger.Callback{Name: "x", OnFire: func(context.Context) error { return errors.New("denied") }}
	failed := New(t.TempDir(), keystrokeLike{failing}, nil).Trigger(context.Background())
	require.Error(t, failed.Err)
	require.Equal(t, " Warning: Could not trigger FL Studio. Press Ctrl+Alt+Y manually.", failed.Suffix())
}

func TestStateMissing(t *testing.T) {
	editor := New(t.TempDir(), nil, nil)
	_, ok, err := editor.State()
	require.NoError(t, err)
	require.False(t, ok)
}

type keystrokeLike struct {
	trigger.Callback
}

func (keystrokeLike) Kind() trigger.Kind { return trigger.KindKeystroke }
func (keystrokeLike) Info() trigger.Info {
	return trigger.Info{Kind: trigger.KindKeystroke, Platform: "windows", Keystroke: "Ctrl+Alt+Y"}
}
