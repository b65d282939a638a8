package matching

// ambiguous marks a fallback key claimed by more than one record
const ambiguous = -1

// Option configures an Index
type Option func(*indexOptions)

type indexOptions struct {
	sets           *SetNormalizer
	allowSetNumber bool
}

// WithSetNormalizer replaces the default set tables
func WithSetNormalizer(n *SetNormalizer) Option {
	return func(o *indexOptions) { o.sets = n }
}

// AllowSetNumber enables the last resort of matching on set and number alone
func AllowSetNumber() Option {
	return func(o *indexOptions) { o.allowSetNumber = true }
}

// Index maps the keys of added records to caller values. Add is not safe for
// concurrent use; Match is once building is finished.
type Index[T any] struct {
	opts   indexOptions
	values []T
	keys   map[Strategy]map[string]int
}

// NewIndex returns an empty index
func NewIndex[T any](opts ...Option) *Index[T] {
	o := indexOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sets == nil {
		o.sets = DefaultSetNormalizer()
	}

	keys := make(map[Strategy]map[string]int, len(Strategies()))
	for _, s := range Strategies() {
		keys[s] = make(map[string]int)
	}
	return &Index[T]{opts: o, keys: keys}
}

// Len returns the number of records added
func (ix *Index[T]) Len() int {
	return len(ix.values)
}

// Add indexes value under every key generated for rec. The first record to
// claim an exact key keeps it; a fallback key claimed by two different
// records becomes ambiguous and stops matching.
func (ix *Index[T]) Add(rec Record, value T) {
	idx := len(ix.values)
	ix.values = append(ix.values, value)

	for _, k := range ix.opts.sets.Keys(rec) {
		m := ix.keys[k.Strategy]
		prev, ok := m[k.Value]
		switch {
		case !ok:
			m[k.Value] = idx
		case k.Strategy == StrategyExact, prev == idx:
		default:
			m[k.Value] = ambiguous
		}
	}
}

func (ix *Index[T]) lookup(s Strategy, key string) (int, bool) {
	idx, ok := ix.keys[s][key]
	if !ok || idx == ambiguous {
		return 0, false
	}
	return idx, true
}

// Match finds the record rec refers to. It tries, in order, the exact key,
// the cleaned-name key, name+number keys, keys under the set's variations
// and, if enabled, set+number. The first hit wins.
func (ix *Index[T]) Match(rec Record) (T, Strategy, bool) {
	var zero T
	if ix.Len() == 0 {
		return zero, "", false
	}

	keys := ix.opts.sets.Keys(rec)

	for _, s := range []Strategy{StrategyExact, StrategyCleanName, StrategyNameNumber, StrategyCleanNameNumber} {
		for _, k := range keys {
			if k.Strategy != s {
				continue
			}
			if idx, ok := ix.lookup(s, k.Value); ok {
				return ix.values[idx], s, true
			}
		}
	}

	// The query's own set against records indexed under a variation
	for _, k := range keys {
		if k.Strategy != StrategyExact && k.Strategy != StrategyCleanName {
			continue
		}
		if idx, ok := ix.lookup(StrategySetVariation, k.Value); ok {
			return ix.values[idx], StrategySetVariation, true
		}
	}
	// The query's variations against records' own sets, then their variations
	for _, k := range keys {
		if k.Strategy != StrategySetVariation {
			continue
		}
		for _, s := range []Strategy{StrategyExact, StrategyCleanName, StrategySetVariation} {
			if idx, ok := ix.lookup(s, k.Value); ok {
				return ix.values[idx], StrategySetVariation, true
			}
		}
	}

	if ix.opts.allowSetNumber {
		for _, k := range keys {
			if k.Strategy != StrategySetNumber {
				continue
			}
			if idx, ok := ix.lookup(StrategySetNumber, k.Value); ok {
				return ix.values[idx], StrategySetNumber, true
			}
		}
	}

	return zero, "", false
}
