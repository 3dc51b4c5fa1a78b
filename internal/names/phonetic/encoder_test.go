package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatible(t *testing.T) {
	table := Table{
		"steven":  {"STFN", ""},
		"stephen": {"STFN", ""},
		"maria":   {"MR", ""},
		"mario":   {"MR", ""},
		"ali":     {"AL", ""},
		"john":    {"JN", "AN"},
		"blank":   {"", ""},
	}

	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{name: "shared primary code", a: "steven", b: "stephen", expected: true},
		{name: "identical tokens", a: "maria", b: "maria", expected: true},
		{name: "disjoint codes", a: "john", b: "ali", expected: false},
		{name: "empty codes never match", a: "blank", b: "blank", expected: false},
		{name: "unknown token", a: "zed", b: "steven", expected: false},
		{name: "case-insensitive lookup", a: "STEVEN", b: "Stephen", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compatible(table, tt.a, tt.b))
			assert.Equal(t, tt.expected, Compatible(table, tt.b, tt.a), "compatibility must be symmetric")
		})
	}
}

func TestAllCompatible(t *testing.T) {
	table := Table{
		"steven":  {"STFN"},
		"stephen": {"STFN"},
		"smith":   {"SM0", "XMT"},
		"smyth":   {"SM0", "XMT"},
		"jones":   {"JNS", "ANS"},
	}

	assert.True(t, AllCompatible(table, []string{"steven", "smith"}, []string{"stephen", "smyth"}))
	assert.False(t, AllCompatible(table, []string{"steven", "smith"}, []string{"stephen", "jones"}))
	assert.False(t, AllCompatible(table, []string{"steven"}, []string{"stephen", "smyth"}))
	assert.True(t, AllCompatible(table, []string{}, []string{}))
}

func TestDoubleMetaphone(t *testing.T) {
	enc := DoubleMetaphone{}

	codes := enc.Encode("stephen")
	assert.Len(t, codes, 2)

	assert.True(t, Compatible(enc, "stephen", "steven"))
	assert.True(t, Compatible(enc, "catherine", "katherine"))
	assert.False(t, Compatible(enc, "robert", "william"))
}

func TestEncoderFunc(t *testing.T) {
	enc := EncoderFunc(func(token string) []string { return []string{token[:1]} })
	assert.True(t, Compatible(enc, "anna", "alex"))
	assert.False(t, Compatible(enc, "anna", "bob"))
}
