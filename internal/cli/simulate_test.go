package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livecheck/internal/liveness/models"
)

const smileScript = `
viewport_width: 375
gestures: [smile]
frames:
  - faces: []
  - repeat: 2
    faces:
      - bounds: [87.5, 112.5, 200, 200]
        left_eye: 0.9
        right_eye: 0.9
        smile: 0.1
  - faces:
      - bounds: [87.5, 112.5, 200, 200]
        smile: 0.95
  - faces: []
`

func TestLoadScript(t *testing.T) {
	t.Run("parses frames", func(t *testing.T) {
		script, err := LoadScript(strings.NewReader(smileScript))
		require.NoError(t, err)
		assert.InDelta(t, 375, script.ViewportWidth, 0)
		assert.Equal(t, []string{"smile"}, script.Gestures)
		require.Len(t, script.Frames, 4)
		assert.Equal(t, 2, script.Frames[1].Repeat)
		assert.Equal(t, [4]float64{87.5, 112.5, 200, 200}, script.Frames[1].Faces[0].Bounds)
	})

	t.Run("defaults viewport to preview width", func(t *testing.T) {
		script, err := LoadScript(strings.NewReader("frames: []\n"))
		require.NoError(t, err)
		assert.InDelta(t, 325, script.ViewportWidth, 0)
	})

	t.Run("rejects narrow viewport", func(t *testing.T) {
		_, err := LoadScript(strings.NewReader("viewport_width: 200\n"))
		assert.ErrorContains(t, err, "viewport_width")
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := LoadScript(strings.NewReader("viewport: 400\n"))
		assert.Error(t, err)
	})
}

func TestSimulate(t *testing.T) {
	script, err := LoadScript(strings.NewReader(smileScript))
	require.NoError(t, err)

	var lines bytes.Buffer
	res, err := Simulate(context.Background(), script, &lines, io.Discard)
	require.NoError(t, err)

	// Replay stops at the completing frame; the trailing empty frame is never fed.
	assert.Equal(t, 4, res.Frames)
	assert.Equal(t, 1, res.Verdicts[models.VerdictNoFace])
	assert.Equal(t, 2, res.Verdicts[models.VerdictFaceOK])
	assert.Equal(t, 1, res.Verdicts[models.VerdictGestureSatisfied])
	assert.True(t, res.Final.Complete)
	assert.InDelta(t, 100, res.Final.ProgressFill, 0)

	out := strings.Split(strings.TrimSpace(lines.String()), "\n")
	require.Len(t, out, 4, "one line per handled frame")
	assert.Contains(t, out[0], "frame 1: verdict=NO_FACE detected=no")
	assert.Contains(t, out[1], "verdict=FACE_OK detected=yes too_big=no step=0/1 progress=50.00")
	assert.Contains(t, out[3], "frame 4: verdict=GESTURE_SATISFIED")
	assert.Contains(t, out[3], "step=1/1 progress=100.00")
}

func TestSimulate_UnknownGesture(t *testing.T) {
	script := &Script{ViewportWidth: 375, Gestures: []string{"WINK"}}
	_, err := Simulate(context.Background(), script, io.Discard, io.Discard)
	assert.Error(t, err)
}

func TestSimulateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smileScript), 0o600))

	var stdout bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"simulate", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "frames: 4")
	assert.Contains(t, stdout.String(), "progress: 100.00")
	assert.Contains(t, stdout.String(), "result: complete")
}

func TestSimulateCommand_IncompleteFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frames:\n  - faces: []\n"), 0o600))

	var stdout bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"simulate", path})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence incomplete after 1 frames")
	assert.Contains(t, stdout.String(), "frame 1: verdict=NO_FACE")
	assert.Contains(t, stdout.String(), "result: incomplete")
}
