package fwi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		risk     float64
		expected string
	}{
		{0, LevelLow},
		{24.9, LevelLow},
		{25, LevelModerate},
		{49.9, LevelModerate},
		{50, LevelHigh},
		{74.9, LevelHigh},
		{75, LevelVeryHigh},
		{99.9, LevelVeryHigh},
		{100, LevelActiveFire},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Level(tt.risk), "risk %v", tt.risk)
	}
}

func TestColor(t *testing.T) {
	assert.Equal(t, "rgb(0, 255, 0)", Color(0))
	assert.Equal(t, "rgb(255, 0, 0)", Color(100))
	assert.Equal(t, "rgb(128, 128, 0)", Color(50))
	assert.Equal(t, "rgb(0, 255, 0)", Color(-20))
	assert.Equal(t, "rgb(255, 0, 0)", Color(140))
}
