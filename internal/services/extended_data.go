package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/codyseavey/pokeprice/internal/models"
)

// CardDetails is what a TCGCSV extendedData array says about a card
type CardDetails struct {
	Number      string
	Rarity      string
	CardType    string
	Stage       string
	CardText    string
	Weakness    string
	Resistance  string
	Artist      string
	HP          *int
	RetreatCost *int
	Attacks     []models.Attack
}

var energyCodes = map[string]string{
	"P": "Psychic",
	"F": "Fighting",
	"G": "Grass",
	"W": "Water",
	"L": "Lightning",
	"R": "Fire",
	"C": "Colorless",
	"D": "Darkness",
	"M": "Metal",
	"Y": "Fairy",
	"N": "Dragon",
}

var trainerTypes = map[string]bool{
	"trainer":      true,
	"supporter":    true,
	"item":         true,
	"stadium":      true,
	"pokemon tool": true,
	"tool":         true,
}

var (
	firstInt    = regexp.MustCompile(`\d+`)
	htmlBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	attackParts = regexp.MustCompile(`^\s*(?:\[([^\]]*)\])?\s*([^(]*?)\s*(?:\(([^)]*)\))?\s*$`)
)

// ParseExtendedData reads the loosely named TCGCSV extendedData fields.
// The first value for a field wins.
func ParseExtendedData(items []TCGCSVExtendedData) CardDetails {
	var d CardDetails
	var rawRarity, attack1, attack2 string

	setOnce := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}

	for _, item := range items {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name == "" {
			name = strings.ToLower(strings.TrimSpace(item.DisplayName))
		}
		value := strings.TrimSpace(item.Value)
		if value == "" {
			continue
		}

		switch {
		case name == "number" || name == "no" || name == "card number" || strings.Contains(name, "number"):
			setOnce(&d.Number, value)
		case name == "hp":
			if d.HP == nil {
				d.HP = parseFirstInt(value)
			}
		case name == "cardtype" || name == "card type" || name == "type":
			setOnce(&d.CardType, value)
		case name == "stage":
			setOnce(&d.Stage, value)
		case name == "weakness":
			setOnce(&d.Weakness, expandEnergyModifier(value, "×2"))
		case name == "resistance":
			setOnce(&d.Resistance, expandEnergyModifier(value, "-20"))
		case name == "retreatcost" || name == "retreat cost" || name == "retreat":
			if d.RetreatCost == nil {
				d.RetreatCost = parseFirstInt(value)
			}
		case name == "rarity":
			setOnce(&rawRarity, value)
		case strings.Contains(name, "attack") && strings.Contains(name, "1"):
			setOnce(&attack1, value)
		case strings.Contains(name, "attack") && strings.Contains(name, "2"):
			setOnce(&attack2, value)
		case name == "cardtext" || name == "card text" || name == "description" || strings.Contains(name, "ability"):
			setOnce(&d.CardText, stripHTML(value))
		case name == "artist" || name == "illustrator":
			setOnce(&d.Artist, value)
		}
	}

	d.Rarity = normalizeRarity(rawRarity, d.isPokemon())
	for _, raw := range []string{attack1, attack2} {
		if a, ok := parseAttack(raw); ok {
			d.Attacks = append(d.Attacks, a)
		}
	}
	return d
}

func (d CardDetails) isPokemon() bool {
	if d.HP != nil {
		return true
	}
	t := strings.ToLower(d.CardType)
	return strings.Contains(t, "pokemon") || strings.Contains(t, "pokémon")
}

// normalizeRarity maps TCGCSV's placeholder rarities. "None" on a Pokemon is a
// Common; on trainers and energy it means the card has no rarity.
func normalizeRarity(raw string, isPokemon bool) string {
	switch strings.ToLower(raw) {
	case "", "unconfirmed", "null":
		return ""
	case "none":
		if isPokemon {
			return "Common"
		}
		return ""
	default:
		return raw
	}
}

// expandEnergyModifier turns the single-letter energy codes TCGCSV uses for
// older cards into "Psychic ×2" style text. Anything else passes through.
func expandEnergyModifier(value, defaultModifier string) string {
	if name, ok := energyCodes[strings.ToUpper(value)]; ok && len(value) == 1 {
		return name + " " + defaultModifier
	}
	return value
}

func parseFirstInt(s string) *int {
	m := firstInt.FindString(s)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

func stripHTML(s string) string {
	s = htmlBreak.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseAttack reads "[1C] Thunder Shock (20)<br>Flip a coin..."
func parseAttack(raw string) (models.Attack, bool) {
	if raw == "" {
		return models.Attack{}, false
	}
	head, text, _ := strings.Cut(htmlBreak.ReplaceAllString(raw, "\n"), "\n")
	m := attackParts.FindStringSubmatch(htmlTag.ReplaceAllString(head, ""))
	if m == nil || strings.TrimSpace(m[2]) == "" {
		return models.Attack{Name: stripHTML(raw)}, true
	}

	attack := models.Attack{
		Name:   strings.TrimSpace(m[2]),
		Damage: strings.TrimSpace(m[3]),
		Text:   stripHTML(text),
	}
	if cost := strings.TrimSpace(m[1]); cost != "" {
		attack.Cost = []string{cost}
	}
	return attack, true
}

// Apply copies the parsed details onto a product, deriving supertype, types
// and subtypes from the card type
func (d CardDetails) Apply(p *models.Product) {
	p.Number = d.Number
	p.Rarity = d.Rarity
	p.Stage = d.Stage
	p.CardText = d.CardText
	p.Weakness = d.Weakness
	p.Resistance = d.Resistance
	p.HP = d.HP
	p.RetreatCost = d.RetreatCost
	if d.Artist != "" {
		p.Artist = d.Artist
	}
	if len(d.Attacks) > 0 {
		p.Attacks = models.EncodeJSONList(d.Attacks)
	}

	cardType := strings.ToLower(d.CardType)
	switch {
	case trainerTypes[cardType]:
		p.Supertype = "Trainer"
		if cardType != "trainer" {
			p.Subtypes = models.EncodeJSONList([]string{d.CardType})
		}
	case strings.Contains(cardType, "energy"):
		p.Supertype = "Energy"
	case d.isPokemon() || d.Stage != "":
		p.Supertype = "Pokémon"
		if d.CardType != "" && !strings.Contains(cardType, "pokemon") && !strings.Contains(cardType, "pokémon") {
			p.Types = models.EncodeJSONList([]string{d.CardType})
		}
		if d.Stage != "" {
			p.Subtypes = models.EncodeJSONList([]string{d.Stage})
		}
	}

	p.IsSealed = d.Number == "" && d.CardType == "" && d.HP == nil && d.Rarity == "" && d.Stage == ""
}
