package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0.344167, "0.344167"},
		{0.2, "0.2"},
		{1, "1"},
		{0, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatFloat(tt.input))
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "8714", formatInt(8714))
	assert.Equal(t, "0", formatInt(0))
}

func TestFormatFlag(t *testing.T) {
	assert.Equal(t, "1", formatFlag(true))
	assert.Equal(t, "0", formatFlag(false))
}
