package setcover

import (
	"slices"
	"strings"
	"testing"
)

func TestGreedyCoversUniverse(t *testing.T) {
	// K1 is the largest set and must be picked first. With {1,2,3} covered,
	// K3 contributes two new elements against K2's one, so K3 closes the
	// cover in the second pick and K2 is never selected.
	sets := map[string]Set[int]{
		"K1": NewSet(1, 2, 3),
		"K2": NewSet(3, 4),
		"K3": NewSet(4, 5),
	}

	got := Greedy(sets, strings.Compare)

	if !slices.Equal(got, []string{"K1", "K3"}) {
		t.Fatalf("selections = %v, want [K1 K3]", got)
	}

	covered := make(Set[int])
	for _, k := range got {
		for e := range sets[k] {
			covered[e] = struct{}{}
		}
	}
	for e := 1; e <= 5; e++ {
		if _, ok := covered[e]; !ok {
			t.Errorf("element %d not covered", e)
		}
	}
}

func TestGreedySkipsUselessKeys(t *testing.T) {
	// K2 is a strict subset of K1 and covers nothing new once K1 is picked;
	// it must never be selected.
	sets := map[string]Set[string]{
		"K1": NewSet("a", "b", "c"),
		"K2": NewSet("b", "c"),
	}

	got := Greedy(sets, strings.Compare)
	if !slices.Equal(got, []string{"K1"}) {
		t.Errorf("selections = %v, want [K1]", got)
	}
}

func TestGreedyDeterministicTieBreak(t *testing.T) {
	sets := map[string]Set[int]{
		"b": NewSet(1, 2),
		"a": NewSet(3, 4),
		"c": NewSet(5, 6),
	}

	// All three sets are disjoint with equal gain: the comparator fully
	// determines selection order across runs.
	for range 50 {
		got := Greedy(sets, strings.Compare)
		if !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Fatalf("selections = %v, want [a b c]", got)
		}
	}
}

func TestGreedyEmptyInput(t *testing.T) {
	if got := Greedy(map[string]Set[int]{}, strings.Compare); len(got) != 0 {
		t.Errorf("selections = %v, want empty", got)
	}
	if got := Greedy(map[string]Set[int]{"K1": {}}, strings.Compare); len(got) != 0 {
		t.Errorf("selections with empty set = %v, want empty", got)
	}
}

func TestGreedyNeverPicksDisjointKey(t *testing.T) {
	sets := map[string]Set[int]{
		"useful":  NewSet(1),
		"useful2": NewSet(2),
	}
	got := Greedy(sets, strings.Compare)
	if len(got) != 2 {
		t.Fatalf("selections = %v", got)
	}
}
