// Package models holds the value types shared by the liveness engine.
package models

import (
	"fmt"
	"strings"

	pstrings "livecheck/pkg/platform/strings"
)

// Rect is an axis-aligned rectangle in screen coordinates (origin top-left).
type Rect struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) MaxX() float64 { return r.MinX + r.Width }
func (r Rect) MaxY() float64 { return r.MinY + r.Height }

// Shrink insets the rectangle by offset/2 on every side.
func (r Rect) Shrink(offset float64) Rect {
	return Rect{
		MinX:   r.MinX + offset/2,
		MinY:   r.MinY + offset/2,
		Width:  r.Width - offset,
		Height: r.Height - offset,
	}
}

// FaceMeasurement is one detected face in one frame, as reported by the
// landmark detector. Angles are in degrees, probabilities in [0, 1].
type FaceMeasurement struct {
	Bounds                  Rect    `json:"bounds"`
	RollAngle               float64 `json:"roll_angle"`
	YawAngle                float64 `json:"yaw_angle"`
	LeftEyeOpenProbability  float64 `json:"left_eye_open_probability"`
	RightEyeOpenProbability float64 `json:"right_eye_open_probability"`
	SmilingProbability      float64 `json:"smiling_probability"`
}

// Frame is the detector output for a single camera frame. Zero or several
// faces are legal inputs.
type Frame struct {
	Faces []FaceMeasurement `json:"faces"`
}

// Presence is a yes/no flag kept as an explicit enum.
type Presence string

const (
	PresenceNo  Presence = "no"
	PresenceYes Presence = "yes"
)

// GestureKind names one user action in the sequence.
type GestureKind string

const (
	GestureBlink         GestureKind = "BLINK"
	GestureTurnHeadLeft  GestureKind = "TURN_HEAD_LEFT"
	GestureTurnHeadRight GestureKind = "TURN_HEAD_RIGHT"
	GestureNod           GestureKind = "NOD"
	GestureSmile         GestureKind = "SMILE"
)

// Gesture describes how a kind is prompted and what satisfies it.
type Gesture struct {
	Kind        GestureKind
	Instruction string
	Threshold   float64
}

var gestures = map[GestureKind]Gesture{
	GestureBlink:         {Kind: GestureBlink, Instruction: "Blink both eyes", Threshold: 0.3},
	GestureTurnHeadLeft:  {Kind: GestureTurnHeadLeft, Instruction: "Turn head left", Threshold: -15},
	GestureTurnHeadRight: {Kind: GestureTurnHeadRight, Instruction: "Turn head right", Threshold: 15},
	GestureNod:           {Kind: GestureNod, Instruction: "Nod", Threshold: 1.5},
	GestureSmile:         {Kind: GestureSmile, Instruction: "Smile", Threshold: 0.7},
}

// DefaultGestureOrder is the sequence used when none is configured.
var DefaultGestureOrder = []GestureKind{
	GestureBlink,
	GestureTurnHeadLeft,
	GestureTurnHeadRight,
	GestureNod,
	GestureSmile,
}

// Descriptor returns the gesture descriptor for k.
func (k GestureKind) Descriptor() (Gesture, bool) {
	g, ok := gestures[k]
	return g, ok
}

func (k GestureKind) Valid() bool {
	_, ok := gestures[k]
	return ok
}

// ParseGestureOrder parses a configured gesture list. Entries are trimmed,
// upper-cased and deduplicated; unknown kinds and empty lists are rejected.
func ParseGestureOrder(values []string) ([]GestureKind, error) {
	cleaned := pstrings.DedupeFold(values, strings.ToUpper)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("gesture order is empty")
	}
	order := make([]GestureKind, 0, len(cleaned))
	for _, v := range cleaned {
		k := GestureKind(v)
		if !k.Valid() {
			return nil, fmt.Errorf("unknown gesture %q", v)
		}
		order = append(order, k)
	}
	return order, nil
}
