package evaluator

// RollHistoryCapacity is the number of roll-angle samples kept for NOD.
const RollHistoryCapacity = 10

// RollHistory is a fixed-capacity FIFO ring of roll-angle samples. Pushing
// into a full ring evicts the oldest sample.
type RollHistory struct {
	samples [RollHistoryCapacity]float64
	start   int
	count   int
}

func (h *RollHistory) Push(v float64) {
	if h.count < RollHistoryCapacity {
		h.samples[(h.start+h.count)%RollHistoryCapacity] = v
		h.count++
		return
	}
	h.samples[h.start] = v
	h.start = (h.start + 1) % RollHistoryCapacity
}

func (h *RollHistory) Len() int { return h.count }

func (h *RollHistory) Full() bool { return h.count == RollHistoryCapacity }

// Latest returns the most recently pushed sample.
func (h *RollHistory) Latest() (float64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.samples[(h.start+h.count-1)%RollHistoryCapacity], true
}

// Samples returns the samples oldest first.
func (h *RollHistory) Samples() []float64 {
	out := make([]float64, h.count)
	for i := range h.count {
		out[i] = h.samples[(h.start+i)%RollHistoryCapacity]
	}
	return out
}

func (h *RollHistory) Reset() {
	*h = RollHistory{}
}
