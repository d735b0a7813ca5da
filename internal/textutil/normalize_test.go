package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Maintenance RADAR", "maintenanceradar"},
		{"strips accents", "Préfecture de Police", "prefecturedepolice"},
		{"drops punctuation", "maintenance RADAR !", "maintenanceradar"},
		{"keeps digits", "Lot n°3 — 2025", "lotn32025"},
		{"empty", "", ""},
		{"only separators", " -- / ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestKey_MatchesAcrossSources(t *testing.T) {
	// The dedup scenario: same tender, different casing and punctuation.
	assert.Equal(t, Key("Maintenance radar"), Key("maintenance RADAR!"))
}

func TestLoose(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps word boundaries", "Préfecture de Police", "prefecture de police"},
		{"collapses runs", "Fourniture  --  gilets", "fourniture gilets"},
		{"trims edges", " (Armées) ", "armees"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Loose(tt.in))
		})
	}
}
