package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulatorReplaces(t *testing.T) {
	tests := []struct {
		name      string
		snapshots []string
		want      string
	}{
		{"growing", []string{"Your", "Your balance"}, "Your balance"},
		{"unrelated", []string{"Hello", "Goodbye"}, "Goodbye"},
		{"shrinking", []string{"Hello world", "Hello"}, "Hello"},
		{"empty last", []string{"Hello", ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Accumulator
			var got string
			for _, s := range tt.snapshots {
				got = a.Apply(s)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, a.Value())
		})
	}
}

func TestAccumulatorCountsShrink(t *testing.T) {
	var a Accumulator
	a.Apply("Hello world")
	a.Apply("Hello")
	a.Apply("Hello again")
	assert.Equal(t, 1, a.Shrunk())

	a.Reset()
	assert.Empty(t, a.Value())
	assert.Zero(t, a.Shrunk())
}
