package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "country code prefix", input: "+1 (555) 010-2030", expected: "5550102030"},
		{name: "bare ten digits", input: "5550102030", expected: "5550102030"},
		{name: "dotted", input: "555.010.2030", expected: "5550102030"},
		{name: "short number kept", input: "010-2030", expected: "0102030"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestSplitName(t *testing.T) {
	first, last, ok := SplitName("Mary Ann van Dyke")
	assert.True(t, ok)
	assert.Equal(t, "Mary", first)
	assert.Equal(t, "Ann van Dyke", last)

	_, _, ok = SplitName("Cher")
	assert.False(t, ok)
}

func TestFirstWords(t *testing.T) {
	assert.Equal(t, []string{"5", "climb", "punch"}, FirstWords("5 Climb Punch Pass", 3))
	assert.Equal(t, []string{"guest", "pass"}, FirstWords("Guest Pass", 3))
	assert.Empty(t, FirstWords("   ", 3))
}

func TestChain(t *testing.T) {
	fn := Chain(NormalizeName, Lowercase)
	assert.Equal(t, "nancy o brien", fn("  Nancy  O. Brien "))
	assert.Equal(t, "nancy obrien", fn("Nancy O'Brien"))
}
