package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "only separators", raw: " , ,", want: nil},
		{name: "trims entries", raw: " BLINK , SMILE", want: []string{"BLINK", "SMILE"}},
		{name: "keeps duplicates", raw: "nod,nod", want: []string{"nod", "nod"}},
		{name: "single broker", raw: "localhost:9092", want: []string{"localhost:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.raw))
		})
	}
}

func TestDedupeFold(t *testing.T) {
	t.Run("nil input", func(t *testing.T) {
		assert.Nil(t, DedupeFold(nil, strings.ToUpper))
	})

	t.Run("folds before comparing", func(t *testing.T) {
		got := DedupeFold([]string{" smile", "BLINK", "Smile", "blink "}, strings.ToUpper)
		assert.Equal(t, []string{"SMILE", "BLINK"}, got)
	})

	t.Run("nil fold keeps case", func(t *testing.T) {
		got := DedupeFold([]string{"Nod", "nod", "Nod"}, nil)
		assert.Equal(t, []string{"Nod", "nod"}, got)
	})

	t.Run("drops blanks", func(t *testing.T) {
		got := DedupeFold([]string{"", "  ", "SMILE"}, strings.ToUpper)
		assert.Equal(t, []string{"SMILE"}, got)
	})
}
