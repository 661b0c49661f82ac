// Package setcover implements the classic greedy approximation for the
// minimum set cover problem.
//
// It is used to consolidate license curations and classifications: given
// many candidate curations (or categories), each covering a set of findings,
// pick an approximately-minimal subset that covers everything coverable.
// Inputs are at most in the low thousands, so the quadratic worst case is
// acceptable; this is never a hot path.
package setcover

// Set is a value set keyed by element.
type Set[E comparable] map[E]struct{}

// NewSet builds a Set from its elements.
func NewSet[E comparable](elements ...E) Set[E] {
	s := make(Set[E], len(elements))
	for _, e := range elements {
		s[e] = struct{}{}
	}
	return s
}

// Greedy returns an approximately-minimal subset of keys whose unioned sets
// cover every element that is coverable by at least one key, in selection
// order.
//
// Each round selects the remaining key covering the most still-uncovered
// elements. Ties are broken by the caller-supplied comparator, which must
// induce a strict deterministic order (return <0 when a should be preferred
// over b); the comparator makes the result reproducible regardless of map
// iteration order. The algorithm terminates as soon as no remaining key
// covers anything new, even if elements remain uncovered: not every element
// needs to be coverable.
//
// The returned selection never contains a key whose set was disjoint from
// the uncovered elements at the time it was picked. The result is an
// approximation and not necessarily of minimum cardinality.
func Greedy[K comparable, E comparable](sets map[K]Set[E], tie func(a, b K) int) []K {
	uncovered := make(Set[E])
	for _, set := range sets {
		for e := range set {
			uncovered[e] = struct{}{}
		}
	}

	remaining := make(map[K]Set[E], len(sets))
	for k, set := range sets {
		remaining[k] = set
	}

	var selection []K
	for len(uncovered) > 0 && len(remaining) > 0 {
		best, gain := pick(remaining, uncovered, tie)
		if gain == 0 {
			break
		}
		selection = append(selection, best)
		for e := range remaining[best] {
			delete(uncovered, e)
		}
		delete(remaining, best)
	}
	return selection
}

func pick[K comparable, E comparable](remaining map[K]Set[E], uncovered Set[E], tie func(a, b K) int) (K, int) {
	var best K
	bestGain := 0
	first := true

	for k, set := range remaining {
		gain := 0
		for e := range set {
			if _, ok := uncovered[e]; ok {
				gain++
			}
		}
		if gain == 0 {
			continue
		}
		switch {
		case first || gain > bestGain:
			best, bestGain, first = k, gain, false
		case gain == bestGain && tie != nil && tie(k, best) < 0:
			best = k
		}
	}
	return best, bestGain
}
