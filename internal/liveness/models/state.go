package models

import "slices"

// SequenceState is the whole observable state of a liveness session.
//
// Invariants: 0 <= CurrentIndex <= len(GestureOrder); Complete implies
// CurrentIndex == len(GestureOrder); FaceDetected == PresenceNo implies the
// state equals NewSequenceState(GestureOrder).
type SequenceState struct {
	FaceDetected Presence      `json:"face_detected"`
	FaceTooBig   Presence      `json:"face_too_big"`
	GestureOrder []GestureKind `json:"gesture_order"`
	CurrentIndex int           `json:"current_index"`
	ProgressFill float64       `json:"progress_fill"`
	Complete     bool          `json:"complete"`
}

// NewSequenceState returns the session-initial state for order.
func NewSequenceState(order []GestureKind) SequenceState {
	return SequenceState{
		FaceDetected: PresenceNo,
		FaceTooBig:   PresenceNo,
		GestureOrder: slices.Clone(order),
	}
}

// CurrentGesture returns the gesture awaiting completion, if any.
func (s SequenceState) CurrentGesture() (GestureKind, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.GestureOrder) {
		return "", false
	}
	return s.GestureOrder[s.CurrentIndex], true
}

// Clone returns a copy that does not share the gesture slice.
func (s SequenceState) Clone() SequenceState {
	s.GestureOrder = slices.Clone(s.GestureOrder)
	return s
}

// Verdict is the evaluator's classification of one frame.
type Verdict string

const (
	VerdictNoFace           Verdict = "NO_FACE"
	VerdictFaceTooBig       Verdict = "FACE_TOO_BIG"
	VerdictFaceOK           Verdict = "FACE_OK"
	VerdictGestureSatisfied Verdict = "GESTURE_SATISFIED"
)

// Transition is the closed set of reducer inputs.
type Transition int

const (
	FaceDetectedYes Transition = iota + 1
	FaceDetectedNo
	FaceTooBigYes
	FaceTooBigNo
	NextDetection
)

func (t Transition) String() string {
	switch t {
	case FaceDetectedYes:
		return "FACE_DETECTED_YES"
	case FaceDetectedNo:
		return "FACE_DETECTED_NO"
	case FaceTooBigYes:
		return "FACE_TOO_BIG_YES"
	case FaceTooBigNo:
		return "FACE_TOO_BIG_NO"
	case NextDetection:
		return "NEXT_DETECTION"
	default:
		return "UNKNOWN"
	}
}
