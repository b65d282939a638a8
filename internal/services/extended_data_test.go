package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codyseavey/pokeprice/internal/models"
)

func ext(pairs ...string) []TCGCSVExtendedData {
	var out []TCGCSVExtendedData
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, TCGCSVExtendedData{Name: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestParseExtendedDataPokemon(t *testing.T) {
	d := ParseExtendedData(ext(
		"Number", "025/165",
		"Rarity", "Common",
		"Card Type", "Lightning",
		"HP", "60",
		"Stage", "Basic",
		"Weakness", "F",
		"RetreatCost", "1",
		"Attack 1", "[1C] Thunder Shock (20)<br>Flip a coin.",
		"Attack 2", "[LL] Thunderbolt (90)",
		"Artist", "Mitsuhiro Arita",
		"Number", "999",
	))

	if d.Number != "025/165" {
		t.Errorf("Number = %q, want first value 025/165", d.Number)
	}
	if d.HP == nil || *d.HP != 60 {
		t.Errorf("HP = %v, want 60", d.HP)
	}
	if d.RetreatCost == nil || *d.RetreatCost != 1 {
		t.Errorf("RetreatCost = %v, want 1", d.RetreatCost)
	}
	if d.Weakness != "Fighting ×2" {
		t.Errorf("Weakness = %q, want Fighting ×2", d.Weakness)
	}
	if d.Artist != "Mitsuhiro Arita" {
		t.Errorf("Artist = %q", d.Artist)
	}

	want := []models.Attack{
		{Name: "Thunder Shock", Cost: []string{"1C"}, Damage: "20", Text: "Flip a coin."},
		{Name: "Thunderbolt", Cost: []string{"LL"}, Damage: "90"},
	}
	if diff := cmp.Diff(want, d.Attacks); diff != "" {
		t.Errorf("Attacks mismatch (-want +got):\n%s", diff)
	}
}

func TestParseExtendedDataUsesDisplayName(t *testing.T) {
	d := ParseExtendedData([]TCGCSVExtendedData{
		{DisplayName: "Illustrator", Value: "Ken Sugimori"},
		{DisplayName: "Resistance", Value: "W"},
		{DisplayName: "Card Text", Value: "Search your deck<br/>for a card."},
	})
	if d.Artist != "Ken Sugimori" {
		t.Errorf("Artist = %q", d.Artist)
	}
	if d.Resistance != "Water -20" {
		t.Errorf("Resistance = %q, want Water -20", d.Resistance)
	}
	if d.CardText != "Search your deck\nfor a card." {
		t.Errorf("CardText = %q", d.CardText)
	}
}

func TestNormalizeRarity(t *testing.T) {
	tests := []struct {
		raw       string
		isPokemon bool
		want      string
	}{
		{"None", true, "Common"},
		{"None", false, ""},
		{"Unconfirmed", true, ""},
		{"null", false, ""},
		{"Rare Holo", false, "Rare Holo"},
		{"", true, ""},
	}
	for _, tt := range tests {
		if got := normalizeRarity(tt.raw, tt.isPokemon); got != tt.want {
			t.Errorf("normalizeRarity(%q, %v) = %q, want %q", tt.raw, tt.isPokemon, got, tt.want)
		}
	}
}

func TestExpandEnergyModifier(t *testing.T) {
	tests := []struct {
		in, modifier, want string
	}{
		{"P", "×2", "Psychic ×2"},
		{"r", "×2", "Fire ×2"},
		{"Fighting ×2", "×2", "Fighting ×2"},
		{"M", "-20", "Metal -20"},
		{"X", "×2", "X"},
	}
	for _, tt := range tests {
		if got := expandEnergyModifier(tt.in, tt.modifier); got != tt.want {
			t.Errorf("expandEnergyModifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCardDetailsApply(t *testing.T) {
	tests := []struct {
		name          string
		data          []TCGCSVExtendedData
		wantSupertype string
		wantTypes     string
		wantSubtypes  string
		wantSealed    bool
		wantRarity    string
	}{
		{
			name:          "pokemon with None rarity",
			data:          ext("Number", "4/102", "Card Type", "Fire", "HP", "120", "Stage", "Stage 2", "Rarity", "None"),
			wantSupertype: "Pokémon",
			wantTypes:     `["Fire"]`,
			wantSubtypes:  `["Stage 2"]`,
			wantRarity:    "Common",
		},
		{
			name:          "supporter is a trainer subtype",
			data:          ext("Number", "189/198", "Card Type", "Supporter", "Rarity", "Uncommon"),
			wantSupertype: "Trainer",
			wantSubtypes:  `["Supporter"]`,
			wantRarity:    "Uncommon",
		},
		{
			name:          "basic energy",
			data:          ext("Card Type", "Basic Energy", "Rarity", "None"),
			wantSupertype: "Energy",
		},
		{
			name:       "booster box is sealed",
			data:       nil,
			wantSealed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p models.Product
			ParseExtendedData(tt.data).Apply(&p)
			if p.Supertype != tt.wantSupertype {
				t.Errorf("Supertype = %q, want %q", p.Supertype, tt.wantSupertype)
			}
			if p.Types != tt.wantTypes {
				t.Errorf("Types = %q, want %q", p.Types, tt.wantTypes)
			}
			if p.Subtypes != tt.wantSubtypes {
				t.Errorf("Subtypes = %q, want %q", p.Subtypes, tt.wantSubtypes)
			}
			if p.IsSealed != tt.wantSealed {
				t.Errorf("IsSealed = %v, want %v", p.IsSealed, tt.wantSealed)
			}
			if p.Rarity != tt.wantRarity {
				t.Errorf("Rarity = %q, want %q", p.Rarity, tt.wantRarity)
			}
		})
	}
}

func TestApplyKeepsExistingArtist(t *testing.T) {
	p := models.Product{Artist: "Kagemaru Himeno"}
	ParseExtendedData(ext("Number", "1")).Apply(&p)
	if p.Artist != "Kagemaru Himeno" {
		t.Errorf("Artist = %q, want existing value kept", p.Artist)
	}
}
