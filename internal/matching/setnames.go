package matching

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// UnknownSet is the canonical name of a record with no set
const UnknownSet = "unknown"

//go:embed set_aliases.yaml
var defaultSetAliases []byte

// eraPrefix matches the series codes TCGCSV puts in front of modern set
// names ("SWSH07: Evolving Skies", "SM - Burning Shadows", "SV: Black Bolt")
var eraPrefix = regexp.MustCompile(`^(?:swsh|sv|sm|xy|me|bw|dp|hgss|pl)[0-9a-z.]*\s*(?::|\s-)\s*`)

var trailingParen = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

type variationRule struct {
	Match string   `yaml:"match"`
	Add   []string `yaml:"add"`
}

type setTables struct {
	Aliases    map[string]string `yaml:"aliases"`
	Codes      map[string]string `yaml:"codes"`
	Variations []variationRule   `yaml:"variations"`
}

// SetNormalizer maps the many spellings of a set name onto one canonical form
type SetNormalizer struct {
	aliases    map[string]string
	codes      map[string]string
	variations []variationRule
}

var (
	defaultOnce       sync.Once
	defaultNormalizer *SetNormalizer
)

// DefaultSetNormalizer returns the normalizer built from the embedded alias tables
func DefaultSetNormalizer() *SetNormalizer {
	defaultOnce.Do(func() {
		n, err := parseSetTables(defaultSetAliases)
		if err != nil {
			panic(fmt.Sprintf("matching: embedded set_aliases.yaml: %v", err))
		}
		defaultNormalizer = n
	})
	return defaultNormalizer
}

// LoadSetNormalizer reads alias tables in the set_aliases.yaml format
func LoadSetNormalizer(r io.Reader) (*SetNormalizer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read set tables: %w", err)
	}
	return parseSetTables(data)
}

func parseSetTables(data []byte) (*SetNormalizer, error) {
	var tables setTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse set tables: %w", err)
	}

	n := &SetNormalizer{
		aliases: make(map[string]string, len(tables.Aliases)),
		codes:   make(map[string]string, len(tables.Codes)),
	}
	for alias, canonical := range tables.Aliases {
		n.aliases[foldSetName(alias)] = foldSetName(canonical)
	}
	for code, canonical := range tables.Codes {
		n.codes[foldSetName(code)] = foldSetName(canonical)
	}
	for _, rule := range tables.Variations {
		match := foldSetName(rule.Match)
		if match == "" {
			return nil, fmt.Errorf("variation rule with empty match")
		}
		add := make([]string, 0, len(rule.Add))
		for _, a := range rule.Add {
			add = append(add, foldSetName(a))
		}
		n.variations = append(n.variations, variationRule{Match: match, Add: add})
	}
	return n, nil
}

// foldSetName is foldText plus "&" spelled out, so "Sword & Shield" and
// "Sword and Shield" fold the same
func foldSetName(name string) string {
	return foldText(strings.ReplaceAll(name, "&", " and "))
}

// Canonical returns the canonical form of a set name or set code.
// Names the tables do not know pass through folded; an empty name is UnknownSet.
func (n *SetNormalizer) Canonical(set string) string {
	return n.canonicalFolded(foldSetName(set))
}

func (n *SetNormalizer) canonicalFolded(folded string) string {
	if folded == "" {
		return UnknownSet
	}
	if canonical, ok := n.codes[folded]; ok {
		return canonical
	}
	if stripped := eraPrefix.ReplaceAllString(folded, ""); stripped != "" {
		folded = stripped
	}
	if canonical, ok := n.aliases[folded]; ok {
		return canonical
	}
	return folded
}

// Variations returns the canonical set followed by every other canonical set
// a card printed in it may be listed under. The result has no duplicates.
func (n *SetNormalizer) Variations(set string) []string {
	folded := foldSetName(set)
	canonical := n.canonicalFolded(folded)
	out := []string{canonical}
	seen := map[string]bool{canonical: true}
	add := func(name string) {
		c := n.canonicalFolded(name)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	if stripped := trailingParen.ReplaceAllString(folded, ""); stripped != folded && stripped != "" {
		add(stripped)
	}
	var matched []variationRule
	for _, rule := range n.variations {
		if strings.Contains(folded, rule.Match) || strings.Contains(canonical, rule.Match) {
			matched = append(matched, rule)
		}
	}
	for _, rule := range matched {
		if len(rule.Add) == 0 {
			// "team rocket" is not a variation of "team rocket returns"
			if !coveredByLongerRule(rule, matched) {
				add(rule.Match)
			}
			continue
		}
		for _, a := range rule.Add {
			add(a)
		}
	}
	return out
}

func coveredByLongerRule(rule variationRule, matched []variationRule) bool {
	for _, other := range matched {
		if len(other.Match) > len(rule.Match) && strings.Contains(other.Match, rule.Match) {
			return true
		}
	}
	return false
}
