package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollHistory_FIFO(t *testing.T) {
	var h RollHistory
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := 1; i <= RollHistoryCapacity; i++ {
		h.Push(float64(i))
	}
	assert.True(t, h.Full())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, h.Samples())

	h.Push(11)
	assert.Equal(t, RollHistoryCapacity, h.Len())
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, h.Samples())
	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, 11.0, latest)

	h.Reset()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Samples())
}
