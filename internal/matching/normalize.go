// Package matching links card records from different sources (illustrator
// CSVs, TCGCSV product feeds, PokemonTCG.io and TCGdex card lists, the local
// catalog) by name, set and number. It is a lookup-table and heuristic-chain
// matcher: every record is indexed under several normalized keys and a query
// walks a fixed fallback chain until one key hits.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// symbolReplacer spells out the Pokemon-specific symbols that one source
// prints and another writes in ASCII
var symbolReplacer = strings.NewReplacer(
	"♀", " f", // Nidoran♀ -> nidoran f
	"♂", " m", // Nidoran♂ -> nidoran m
	"δ", " delta", // Deoxys δ -> deoxys delta
	"’", "'", // curly apostrophe
	"‘", "'",
	"`", "'",
	"★", " star",
)

var (
	leadingNumber  = regexp.MustCompile(`^0*(\d+)`)
	numberFromName = []*regexp.Regexp{
		regexp.MustCompile(`\s*-\s*(\d{1,4}/?\d{0,4})\s*$`), // Card Name - 001/073
		regexp.MustCompile(`\s+(\d{1,4}/?\d{0,4})\s*$`),     // Card Name 001/073
		regexp.MustCompile(`^(\d{1,4}/?\d{0,4})\s+`),        // 001/073 Card Name
	}
)

// foldText lowercases, strips diacritics (Pokémon -> pokemon) and collapses
// whitespace. Every key part goes through it on both the index and query side.
func foldText(s string) string {
	if s == "" {
		return ""
	}
	s = symbolReplacer.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ExtractNumber reduces a printed collector number to its comparable form:
// "002/086" -> "2", "25" -> "25", "000" -> "0". Numbers that do not start
// with a digit (SWSH001, TG05/TG30) keep their prefix and are lowercased.
func ExtractNumber(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if m := leadingNumber.FindStringSubmatch(number); m != nil {
		return m[1]
	}
	if i := strings.Index(number, "/"); i > 0 {
		number = number[:i]
	}
	return strings.ToLower(strings.TrimSpace(number))
}

// NumberFromName pulls a collector number out of a product name for feeds
// that embed it there ("Pikachu - 025/165", "Pikachu 025/165", "025/165 Pikachu").
// Returns "" when the name carries no number.
func NumberFromName(name string) string {
	if name == "" {
		return ""
	}
	for _, re := range numberFromName {
		if m := re.FindStringSubmatch(name); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ArtistsMatch compares two artist credits ignoring case and spacing.
// Two missing credits match; one missing credit does not.
func ArtistsMatch(a, b string) bool {
	a = strings.Join(strings.Fields(strings.ToLower(a)), " ")
	b = strings.Join(strings.Fields(strings.ToLower(b)), " ")
	if a == "" && b == "" {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	return a == b
}
