package theme

import (
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"
)

func TestProgressBarWidth(t *testing.T) {
	tests := []struct {
		done, total, width int
	}{
		{0, 10, 20},
		{5, 10, 20},
		{10, 10, 20},
		{15, 10, 20},
		{3, 0, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.width, lipgloss.Width(ProgressBar(tt.done, tt.total, tt.width)))
	}
	assert.Empty(t, ProgressBar(1, 2, 0))
}

func TestVerdict(t *testing.T) {
	assert.Contains(t, Verdict(true), "correct")
	assert.Contains(t, Verdict(false), "incorrect")
}
