package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical", "argan oil", "argan oil", 0},
		{"both empty", "", "", 0},
		{"one empty", "argan", "", 5},
		{"single substitution", "kitten", "mitten", 1},
		{"classic", "kitten", "sitting", 3},
		{"insertion", "oil", "oïl", 1},
		{"arabic", "محمد", "محمود", 1},
		{"transposition counts twice", "ab", "ba", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EditDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, EditDistance(tt.b, tt.a))
		})
	}
}

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{"identical", "argan oil", "argan oil", 1},
		{"both empty", "", "", 1},
		{"left empty", "", "argan", 0},
		{"right empty", "argan", "", 0},
		{"half different", "ab", "ax", 0.5},
		{"mostly similar", "Mohammed", "Mohamed", 7.0 / 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StringSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestStringSimilarityProperties(t *testing.T) {
	pairs := [][2]string{
		{"Argan Oil 100ml", "Argan Oil 100 ml"},
		{"Fatima Zahra", "Fatima Zahara"},
		{"12 Rue Atlas", "12 rue atlas"},
		{"", "x"},
	}

	for _, pair := range pairs {
		a, b := pair[0], pair[1]

		forward := StringSimilarity(a, b)
		backward := StringSimilarity(b, a)

		assert.InDelta(t, forward, backward, 1e-9, "symmetry for %q / %q", a, b)
		assert.GreaterOrEqual(t, forward, 0.0)
		assert.LessOrEqual(t, forward, 1.0)
	}
}
