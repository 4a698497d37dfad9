package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameFilter_Valid(t *testing.T) {
	f := NewNameFilter(nil)

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plausible person name", "Taylor Swift", true},
		{"single name", "Blake", true},
		{"stock photo credit", "Getty Images", false},
		{"platform name", "Instagram", false},
		{"interjection", "lol", false},
		{"interjection cased", "LOL", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"single rune", "x", false},
		{"numeric", "2024", false},
		{"numeric with separators", "1,000.50", false},
		{"mostly emoji", "🔥🔥🔥 a", false},
		{"name with apostrophe", "O'Brien", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Valid(tt.input))
		})
	}
}

func TestNameFilter_ExtraBlocklistEntries(t *testing.T) {
	f := NewNameFilter([]string{"Deadpool Press"})

	assert.False(t, f.Valid("deadpool press"))
	assert.False(t, f.Valid("Deadpool Press"))
	assert.True(t, f.Valid("Deadpool"))
}
