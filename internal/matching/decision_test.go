package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreshold_Decide(t *testing.T) {
	for _, threshold := range []Threshold{0, 50, DefaultThreshold, 100} {
		for c := 0; c <= 100; c++ {
			d := threshold.Decide(c, "reason")
			assert.Equal(t, c >= int(threshold), d.Match, "threshold=%d confidence=%d", threshold, c)
			assert.Equal(t, c, d.Confidence)
			assert.Equal(t, "reason", d.Explanation)
		}
	}
}

func TestThreshold_Boundary(t *testing.T) {
	assert.False(t, DefaultThreshold.Decide(84, "").Match)
	assert.True(t, DefaultThreshold.Decide(85, "").Match)
}

func TestThreshold_Valid(t *testing.T) {
	assert.True(t, Threshold(0).Valid())
	assert.True(t, Threshold(100).Valid())
	assert.False(t, Threshold(-1).Valid())
	assert.False(t, Threshold(101).Valid())
}

func TestIsGenderSwap(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"maria", "mario", true},
		{"Mario", "MARIA", true},
		{"paola", "paolo", true},
		{"a", "o", true},
		{"maria", "marco", false},
		{"maria", "maria", false},
		{"mario", "mario", false},
		{"andrea", "andreas", false},
		{"michael", "michelle", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsGenderSwap(tt.a, tt.b))
			assert.Equal(t, tt.expected, IsGenderSwap(tt.b, tt.a))
		})
	}
}
