// Package evaluator classifies detector frames against the current sequence state.
package evaluator

import (
	"math"

	"livecheck/internal/liveness/geometry"
	"livecheck/internal/liveness/models"
)

// Evaluator turns one frame into a verdict. The only state it carries is the
// roll-angle history used by the NOD predicate, so one Evaluator belongs to
// exactly one session and must not be shared.
type Evaluator struct {
	preview models.Rect
	history RollHistory
}

// New creates an evaluator for the given preview rectangle.
func New(preview models.Rect) *Evaluator {
	return &Evaluator{preview: preview}
}

// Evaluate returns the verdict for frame given the state produced by the
// previous frame. Checks short-circuit in order: face count, containment,
// size (only before detection), then the current gesture predicate.
func (e *Evaluator) Evaluate(frame models.Frame, state models.SequenceState) models.Verdict {
	if len(frame.Faces) != 1 {
		return models.VerdictNoFace
	}
	face := frame.Faces[0]

	if !geometry.Contains(e.preview, face.Bounds.Shrink(geometry.EdgeOffset)) {
		return models.VerdictNoFace
	}

	if state.FaceDetected == models.PresenceNo && geometry.TooBig(face.Bounds) {
		return models.VerdictFaceTooBig
	}

	kind, ok := state.CurrentGesture()
	if !ok || state.Complete {
		return models.VerdictFaceOK
	}
	if e.satisfied(kind, face) {
		return models.VerdictGestureSatisfied
	}
	return models.VerdictFaceOK
}

// Reset drops the roll-angle history.
func (e *Evaluator) Reset() {
	e.history.Reset()
}

// History exposes the roll-angle samples, oldest first.
func (e *Evaluator) History() []float64 {
	return e.history.Samples()
}

func (e *Evaluator) satisfied(kind models.GestureKind, face models.FaceMeasurement) bool {
	g, ok := kind.Descriptor()
	if !ok {
		return false
	}
	switch kind {
	case models.GestureBlink:
		return face.LeftEyeOpenProbability <= g.Threshold && face.RightEyeOpenProbability <= g.Threshold
	case models.GestureTurnHeadLeft:
		return face.YawAngle <= g.Threshold
	case models.GestureTurnHeadRight:
		return face.YawAngle >= g.Threshold
	case models.GestureSmile:
		return face.SmilingProbability >= g.Threshold
	case models.GestureNod:
		e.history.Push(face.RollAngle)
		return nodDiff(&e.history) >= g.Threshold
	default:
		return false
	}
}

// nodDiff compares the latest roll angle with the mean magnitude of the
// samples before it. Returns 0 until the history is full.
func nodDiff(h *RollHistory) float64 {
	if !h.Full() {
		return 0
	}
	latest, _ := h.Latest()
	previous := h.Samples()[:h.Len()-1]
	var sum float64
	for _, v := range previous {
		sum += math.Abs(v)
	}
	mean := sum / float64(len(previous))
	return math.Abs(mean - math.Abs(latest))
}
