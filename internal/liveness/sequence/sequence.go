// Package sequence is the pure reducer that drives a liveness session.
package sequence

import (
	"fmt"

	"livecheck/internal/liveness/models"
)

// Reduce applies one transition to state and returns the new state. It never
// mutates its input. An unknown transition is a wiring bug and panics.
func Reduce(state models.SequenceState, t models.Transition) models.SequenceState {
	next := state.Clone()
	n := len(state.GestureOrder)
	slice := 100 / float64(n+1)

	switch t {
	case models.FaceDetectedYes:
		next.FaceDetected = models.PresenceYes
		next.ProgressFill = slice
	case models.FaceDetectedNo:
		return models.NewSequenceState(state.GestureOrder)
	case models.FaceTooBigYes:
		next.FaceTooBig = models.PresenceYes
	case models.FaceTooBigNo:
		next.FaceTooBig = models.PresenceNo
	case models.NextDetection:
		if state.Complete {
			return next
		}
		next.CurrentIndex = state.CurrentIndex + 1
		// the first slice is reserved for face acquisition
		next.ProgressFill = slice * float64(next.CurrentIndex+1)
		if next.CurrentIndex >= n {
			next.CurrentIndex = n
			next.Complete = true
			next.ProgressFill = 100
		}
	default:
		panic(fmt.Sprintf("sequence: unexpected transition %d", int(t)))
	}
	return next
}

// TransitionsFor maps a verdict to the ordered transitions dispatched for one
// frame, given the state the verdict was computed against.
func TransitionsFor(v models.Verdict, state models.SequenceState) []models.Transition {
	switch v {
	case models.VerdictNoFace:
		return []models.Transition{models.FaceDetectedNo}
	case models.VerdictFaceTooBig:
		return []models.Transition{models.FaceTooBigYes}
	}

	var out []models.Transition
	if state.FaceDetected == models.PresenceNo {
		if state.FaceTooBig == models.PresenceYes {
			out = append(out, models.FaceTooBigNo)
		}
		out = append(out, models.FaceDetectedYes)
	}
	if v == models.VerdictGestureSatisfied {
		out = append(out, models.NextDetection)
	}
	return out
}

// Apply folds transitions over state in order.
func Apply(state models.SequenceState, transitions ...models.Transition) models.SequenceState {
	for _, t := range transitions {
		state = Reduce(state, t)
	}
	return state
}
