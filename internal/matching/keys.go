package matching

import "strings"

// Record is the part of a card every source can provide
type Record struct {
	Name   string `json:"name"`
	Set    string `json:"set"`
	Number string `json:"number"`
}

// Strategy names the rule that produced a match
type Strategy string

const (
	StrategyExact           Strategy = "exact"
	StrategyCleanName       Strategy = "clean_name"
	StrategyNameNumber      Strategy = "name_number"
	StrategyCleanNameNumber Strategy = "clean_name_number"
	StrategySetVariation    Strategy = "set_variation"
	StrategySetNumber       Strategy = "set_number"
)

// Strategies lists every strategy in the order Match tries them
func Strategies() []Strategy {
	return []Strategy{
		StrategyExact,
		StrategyCleanName,
		StrategyNameNumber,
		StrategyCleanNameNumber,
		StrategySetVariation,
		StrategySetNumber,
	}
}

// Key is one lookup key and the strategy it serves
type Key struct {
	Strategy Strategy
	Value    string
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// Keys generates the lookup keys for a record in match order. Name+number
// keys and the set+number key are only produced when the record has a number.
func (n *SetNormalizer) Keys(rec Record) []Key {
	name := foldText(rec.Name)
	clean := foldText(CleanName(rec.Name))
	number := ExtractNumber(rec.Number)
	sets := n.Variations(rec.Set)
	set := sets[0]

	keys := []Key{
		{StrategyExact, joinKey(name, set, number)},
	}
	if clean != "" {
		keys = append(keys, Key{StrategyCleanName, joinKey(clean, set, number)})
	}
	if number != "" {
		keys = append(keys, Key{StrategyNameNumber, joinKey(name, number)})
		if clean != "" {
			keys = append(keys, Key{StrategyCleanNameNumber, joinKey(clean, number)})
		}
	}
	for _, v := range sets[1:] {
		keys = append(keys, Key{StrategySetVariation, joinKey(name, v, number)})
		if clean != "" && clean != name {
			keys = append(keys, Key{StrategySetVariation, joinKey(clean, v, number)})
		}
	}
	if number != "" {
		keys = append(keys, Key{StrategySetNumber, "#" + joinKey(set, number)})
	}
	return keys
}

// BuildKeys returns the distinct key strings for a record using the default
// set tables, in match order
func BuildKeys(rec Record) []string {
	keys := DefaultSetNormalizer().Keys(rec)
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k.Value] {
			seen[k.Value] = true
			out = append(out, k.Value)
		}
	}
	return out
}
