package normalize_test

import (
	"testing"

	"cabin-manager/core/normalize"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty", "", ""},
		{"Whitespace only", "   \t ", ""},
		{"Lower cases", "COLIBRI", "colibri"},
		{"Strips accents", "Colibrí", "colibri"},
		{"Strips tilde", "Cabaña", "cabana"},
		{"Collapses spaces", "  Not   Available ", "not available"},
		{"Keeps punctuation", "Airbnb (Not available)", "airbnb (not available)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Fold(tt.in))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, normalize.Equal("Peperina", " peperína"))
	assert.True(t, normalize.Equal("COLIBRÍ", "colibri"))
	assert.False(t, normalize.Equal("Colibri", "Peperina"))
}
