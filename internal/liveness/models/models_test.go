package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRect_Shrink(t *testing.T) {
	r := Rect{MinX: 10, MinY: 20, Width: 200, Height: 300}.Shrink(50)
	assert.Equal(t, Rect{MinX: 35, MinY: 45, Width: 150, Height: 250}, r)
	assert.Equal(t, 185.0, r.MaxX())
	assert.Equal(t, 295.0, r.MaxY())
}

func TestParseGestureOrder(t *testing.T) {
	t.Run("trims, upper-cases and deduplicates", func(t *testing.T) {
		order, err := ParseGestureOrder([]string{" blink", "SMILE", "Blink ", "", "nod"})
		require.NoError(t, err)
		assert.Equal(t, []GestureKind{GestureBlink, GestureSmile, GestureNod}, order)
	})

	t.Run("rejects unknown gesture", func(t *testing.T) {
		_, err := ParseGestureOrder([]string{"BLINK", "WINK"})
		assert.ErrorContains(t, err, "WINK")
	})

	t.Run("rejects empty order", func(t *testing.T) {
		_, err := ParseGestureOrder([]string{" ", ""})
		assert.Error(t, err)
	})
}

func TestGestureDescriptors(t *testing.T) {
	for _, k := range DefaultGestureOrder {
		g, ok := k.Descriptor()
		require.True(t, ok, k)
		assert.Equal(t, k, g.Kind)
		assert.NotEmpty(t, g.Instruction)
	}
	_, ok := GestureKind("WINK").Descriptor()
	assert.False(t, ok)
}

func TestNewSequenceState_ClonesOrder(t *testing.T) {
	order := []GestureKind{GestureBlink, GestureSmile}
	s := NewSequenceState(order)
	order[0] = GestureNod

	assert.Equal(t, GestureBlink, s.GestureOrder[0])
	assert.Equal(t, PresenceNo, s.FaceDetected)
	assert.Equal(t, PresenceNo, s.FaceTooBig)
	assert.Zero(t, s.CurrentIndex)
	assert.Zero(t, s.ProgressFill)
	assert.False(t, s.Complete)
}

func TestPromptFor(t *testing.T) {
	s := NewSequenceState(DefaultGestureOrder)
	assert.Equal(t, Prompt{Headline: HeadlinePositionFace}, PromptFor(s))

	s.FaceTooBig = PresenceYes
	assert.Equal(t, Prompt{Headline: HeadlineTooClose}, PromptFor(s))

	s.FaceTooBig = PresenceNo
	s.FaceDetected = PresenceYes
	s.CurrentIndex = 3
	assert.Equal(t, Prompt{Headline: HeadlineKeepStill, Action: "Nod"}, PromptFor(s))

	s.CurrentIndex = len(s.GestureOrder)
	s.Complete = true
	assert.Equal(t, Prompt{Headline: HeadlineComplete}, PromptFor(s))
}
