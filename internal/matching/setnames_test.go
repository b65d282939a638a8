package matching

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonical(t *testing.T) {
	n := DefaultSetNormalizer()

	tests := []struct {
		set  string
		want string
	}{
		{"Base Set", "base"},
		{"base1", "base"},
		{"SWSH07: Evolving Skies", "evolving skies"},
		{"swsh7", "evolving skies"},
		{"Sword & Shield", "sword and shield"},
		{"HeartGold & SoulSilver", "heartgold and soulsilver"},
		{"HeartGold SoulSilver", "heartgold and soulsilver"},
		{"SV: Scarlet & Violet 151", "151"},
		{"sv3pt5", "151"},
		{"XY - Evolutions", "evolutions"},
		{"SM - Burning Shadows", "burning shadows"},
		{"Champion’s Path", "champion's path"},
		{"Champions Path", "champion's path"},
		{"Pokémon GO", "pokemon go"},
		{"Plasma Storm", "plasma storm"},
		{"Mega Evolution", "mega evolution"},
		{"", UnknownSet},
	}

	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			if got := n.Canonical(tt.set); got != tt.want {
				t.Errorf("Canonical(%q) = %q, want %q", tt.set, got, tt.want)
			}
		})
	}
}

func TestVariations(t *testing.T) {
	n := DefaultSetNormalizer()

	tests := []struct {
		set  string
		want []string
	}{
		{"Base Set", []string{"base", "base set (shadowless)"}},
		{"Base Set (Shadowless)", []string{"base set (shadowless)", "base"}},
		{"Black & White", []string{"black and white", "black bolt"}},
		{"Jungle (1st Edition)", []string{"jungle (1st edition)", "jungle"}},
		{"Paradox Rift", []string{"paradox rift"}},
		{"Team Rocket Returns", []string{"team rocket returns"}},
		{"Team Rocket", []string{"team rocket"}},
		{"", []string{UnknownSet}},
	}

	for _, tt := range tests {
		t.Run(tt.set, func(t *testing.T) {
			got := n.Variations(tt.set)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Variations(%q) mismatch (-want +got):\n%s", tt.set, diff)
			}
		})
	}
}

func TestLoadSetNormalizer(t *testing.T) {
	tables := `
aliases:
  The Old One: New Set
codes:
  NS1: New Set
variations:
  - match: new set
    add: [Other Set]
`
	n, err := LoadSetNormalizer(strings.NewReader(tables))
	if err != nil {
		t.Fatalf("LoadSetNormalizer() error = %v", err)
	}

	if got := n.Canonical("the old one"); got != "new set" {
		t.Errorf("Canonical(alias) = %q, want new set", got)
	}
	if got := n.Canonical("ns1"); got != "new set" {
		t.Errorf("Canonical(code) = %q, want new set", got)
	}
	if diff := cmp.Diff([]string{"new set", "other set"}, n.Variations("NS1")); diff != "" {
		t.Errorf("Variations(NS1) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSetNormalizerErrors(t *testing.T) {
	tests := []struct {
		name   string
		tables string
	}{
		{"invalid yaml", "aliases: [unclosed"},
		{"empty match", "variations:\n  - add: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSetNormalizer(strings.NewReader(tt.tables)); err == nil {
				t.Error("LoadSetNormalizer() error = nil, want error")
			}
		})
	}
}
