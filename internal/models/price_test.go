package models

import (
	"testing"
	"time"
)

func TestMapConditionName(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		expected  PriceCondition
	}{
		{"Near Mint maps to NM", "Near Mint", PriceConditionNM},
		{"NM code maps to NM", "nm", PriceConditionNM},
		{"Lightly Played maps to LP", "Lightly Played", PriceConditionLP},
		{"Moderately Played maps to MP", "Moderately Played", PriceConditionMP},
		{"Heavily Played maps to HP", "Heavily Played", PriceConditionHP},
		{"Damaged maps to DMG", "Damaged", PriceConditionDMG},
		{"Graded maps to Graded", "Graded", PriceConditionGraded},
		{"Unknown maps to empty", "Sealed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapConditionName(tt.condition)
			if result != tt.expected {
				t.Errorf("MapConditionName(%q) = %q, want %q", tt.condition, result, tt.expected)
			}
		})
	}
}

func TestAllPriceConditions(t *testing.T) {
	conditions := AllPriceConditions()

	if len(conditions) != 5 {
		t.Errorf("AllPriceConditions() returned %d conditions, want 5", len(conditions))
	}

	for _, cond := range conditions {
		if cond == PriceConditionGraded {
			t.Errorf("AllPriceConditions() should only list raw conditions, got %s", cond)
		}
	}
}

func TestNormalizeVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{"", VariantNormal},
		{"Normal", VariantNormal},
		{"Holofoil", VariantHolofoil},
		{"holofoil", VariantHolofoil},
		{"Reverse Holofoil", VariantReverseHolo},
		{"reverseHolofoil", VariantReverseHolo},
		{"reverse-holofoil", VariantReverseHolo},
		{"1st Edition", Variant1stEdition},
		{"1stEditionHolofoil", Variant1stEditionHolo},
		{"Unlimited Holofoil", VariantUnlimitedHolo},
		{"Staff Stamp", Variant("Staff Stamp")},
	}

	for _, tt := range tests {
		if got := NormalizeVariant(tt.in); got != tt.want {
			t.Errorf("NormalizeVariant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVariantIsFoilVariant(t *testing.T) {
	foil := []Variant{VariantHolofoil, VariantReverseHolo, Variant1stEditionHolo, VariantUnlimitedHolo}
	for _, v := range foil {
		if !v.IsFoilVariant() {
			t.Errorf("%s.IsFoilVariant() = false, want true", v)
		}
	}

	// 1st Edition is a print run, not a foil treatment
	notFoil := []Variant{VariantNormal, Variant1stEdition, VariantUnlimited}
	for _, v := range notFoil {
		if v.IsFoilVariant() {
			t.Errorf("%s.IsFoilVariant() = true, want false", v)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want CardLanguage
	}{
		{"English", LanguageEnglish},
		{"en", LanguageEnglish},
		{"", LanguageEnglish},
		{"Japanese", LanguageJapanese},
		{"ja", LanguageJapanese},
		{"JP", LanguageJapanese},
		{"unknown", LanguageEnglish},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceTags(t *testing.T) {
	if got := GradedSource("10"); got != "pokemonpricetracker-psa-10" {
		t.Errorf("GradedSource(10) = %q", got)
	}
	if got := ConditionSource("", "Near Mint"); got != "pokemonpricetracker-near-mint" {
		t.Errorf("ConditionSource(\"\", Near Mint) = %q", got)
	}
	if got := ConditionSource("Reverse Holofoil", "Lightly Played"); got != "pokemonpricetracker-reverse-holofoil-lightly-played" {
		t.Errorf("ConditionSource(Reverse Holofoil, Lightly Played) = %q", got)
	}
}

func TestPriceDate(t *testing.T) {
	d := time.Date(2025, time.March, 7, 23, 59, 0, 0, time.UTC)
	if got := PriceDate(d); got != "2025-03-07" {
		t.Errorf("PriceDate() = %q, want 2025-03-07", got)
	}
}

func TestLanguageForCategory(t *testing.T) {
	if got := LanguageForCategory(CategoryPokemon); got != LanguageEnglish {
		t.Errorf("LanguageForCategory(3) = %q, want en", got)
	}
	if got := LanguageForCategory(CategoryPokemonJapanese); got != LanguageJapanese {
		t.Errorf("LanguageForCategory(85) = %q, want ja", got)
	}
}

func TestJSONListRoundTripKeepsEmptyDistinct(t *testing.T) {
	if got := EncodeJSONList[string](nil); got != "" {
		t.Errorf("EncodeJSONList(nil) = %q, want empty", got)
	}

	encoded := EncodeJSONList([]Attack{{Name: "Thunder Shock", Damage: "20"}})
	decoded := DecodeJSONList[Attack](encoded)
	if len(decoded) != 1 || decoded[0].Name != "Thunder Shock" || decoded[0].Damage != "20" {
		t.Errorf("DecodeJSONList(%q) = %+v", encoded, decoded)
	}

	if got := DecodeJSONList[Attack]("not json"); got != nil {
		t.Errorf("DecodeJSONList(invalid) = %+v, want nil", got)
	}
}

func TestProductMarkVariant(t *testing.T) {
	var p Product
	p.MarkVariant(VariantReverseHolo)
	p.MarkVariant(Variant1stEditionHolo)
	p.MarkVariant(Variant("Staff Stamp"))

	if !p.HasReverseHolo || !p.HasFirstEdition || !p.HasNormal {
		t.Errorf("MarkVariant flags = %+v", p)
	}
	if p.HasHolofoil {
		t.Error("HasHolofoil should not be set")
	}
}
