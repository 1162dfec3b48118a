package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one ascii char rounds up", "a", 1},
		{"four ascii chars", "abcd", 1},
		{"five ascii chars", "abcde", 2},
		{"accented runes weigh more", "ção", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestChars_CountsRunes(t *testing.T) {
	assert.Equal(t, 7, Chars("Estraté"))
	assert.Equal(t, 0, Chars(""))
}
