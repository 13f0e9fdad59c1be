package models

const (
	HeadlinePositionFace = "Position your face in the circle"
	HeadlineKeepStill    = "Keep the device still and perform the following actions:"
	HeadlineTooClose     = "You're too close. Hold the device further."
	HeadlineComplete     = "Verification complete"
)

// Prompt is the instruction text a client renders for a state.
type Prompt struct {
	Headline string `json:"headline"`
	Action   string `json:"action,omitempty"`
}

// PromptFor derives the instruction text from state.
func PromptFor(s SequenceState) Prompt {
	switch {
	case s.Complete:
		return Prompt{Headline: HeadlineComplete}
	case s.FaceTooBig == PresenceYes:
		return Prompt{Headline: HeadlineTooClose}
	case s.FaceDetected == PresenceNo:
		return Prompt{Headline: HeadlinePositionFace}
	}
	p := Prompt{Headline: HeadlineKeepStill}
	if k, ok := s.CurrentGesture(); ok {
		if g, ok := k.Descriptor(); ok {
			p.Action = g.Instruction
		}
	}
	return p
}
