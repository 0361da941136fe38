package domain_test

import (
	"errors"
	"strings"
	"testing"

	"plugdir/internal/modules/discovery/domain"
)

// mapView is a fixed type graph for criterion tests.
type mapView map[string]domain.TypeDescriptor

func (v mapView) Types() []domain.TypeDescriptor {
	out := make([]domain.TypeDescriptor, 0, len(v))
	for _, t := range v {
		out = append(out, t)
	}
	return out
}

func (v mapView) Resolve(name string) (domain.TypeDescriptor, bool) {
	t, ok := v[name]
	return t, ok
}

func graphView() mapView {
	return mapView{
		"sdk.Plugin":  {Name: "sdk.Plugin", Kind: "interface"},
		"sdk.Command": {Name: "sdk.Command", Kind: "interface", Implements: []string{"sdk.Plugin"}},
		"mod.Base":    {Name: "mod.Base", Kind: "struct", Implements: []string{"sdk.Command"}},
		"mod.Echo":    {Name: "mod.Echo", Kind: "struct", Extends: "mod.Base"},
		"mod.Marked":  {Name: "mod.Marked", Kind: "struct", Markers: map[string]string{"export": "true", "stage": "beta"}},
	}
}

func TestImplementsCriterion(t *testing.T) {
	t.Parallel()
	view := graphView()

	direct := domain.ImplementsCriterion{Interface: "sdk.Command"}
	if !direct.Match(view, view["mod.Base"]) {
		t.Fatalf("expected direct implementation to match")
	}

	// Echo reaches sdk.Plugin only through its base type and the embedded
	// interface chain Command -> Plugin.
	transitive := domain.ImplementsCriterion{Interface: "sdk.Plugin"}
	if !transitive.Match(view, view["mod.Echo"]) {
		t.Fatalf("expected transitive implementation to match")
	}

	if (domain.ImplementsCriterion{Interface: "sdk.Renderer"}).Match(view, view["mod.Echo"]) {
		t.Fatalf("did not expect unrelated interface to match")
	}
}

func TestImplementsCriterionUnresolvedIsNonMatch(t *testing.T) {
	t.Parallel()
	view := mapView{}
	target := domain.TypeDescriptor{Name: "mod.Orphan", Implements: []string{"missing.Interface"}}
	if (domain.ImplementsCriterion{Interface: "sdk.Plugin"}).Match(view, target) {
		t.Fatalf("unresolved reference must degrade to non-match")
	}
}

func TestImplementsCriterionSurvivesCycles(t *testing.T) {
	t.Parallel()
	view := mapView{
		"mod.A": {Name: "mod.A", Implements: []string{"mod.B"}},
		"mod.B": {Name: "mod.B", Implements: []string{"mod.A"}},
	}
	if (domain.ImplementsCriterion{Interface: "sdk.Plugin"}).Match(view, view["mod.A"]) {
		t.Fatalf("cyclic graph must not match")
	}
}

func TestDerivesCriterion(t *testing.T) {
	t.Parallel()
	view := mapView{
		"mod.Root": {Name: "mod.Root"},
		"mod.Mid":  {Name: "mod.Mid", Extends: "mod.Root"},
		"mod.Leaf": {Name: "mod.Leaf", Extends: "mod.Mid"},
		"mod.LoopA": {Name: "mod.LoopA", Extends: "mod.LoopB"},
		"mod.LoopB": {Name: "mod.LoopB", Extends: "mod.LoopA"},
	}

	if !(domain.DerivesCriterion{Base: "mod.Root"}).Match(view, view["mod.Leaf"]) {
		t.Fatalf("expected base chain to reach the root")
	}
	if (domain.DerivesCriterion{Base: "mod.Leaf"}).Match(view, view["mod.Root"]) {
		t.Fatalf("derivation is not symmetric")
	}
	if (domain.DerivesCriterion{Base: "mod.Root"}).Match(view, view["mod.LoopA"]) {
		t.Fatalf("cyclic base chain must terminate as non-match")
	}
}

func TestMarkerCriterion(t *testing.T) {
	t.Parallel()
	view := graphView()
	marked := view["mod.Marked"]

	if !(domain.MarkerCriterion{Key: "export"}).Match(view, marked) {
		t.Fatalf("expected key-only marker to match")
	}
	if !(domain.MarkerCriterion{Key: "stage", Value: "beta"}).Match(view, marked) {
		t.Fatalf("expected key=value marker to match")
	}
	if (domain.MarkerCriterion{Key: "stage", Value: "stable"}).Match(view, marked) {
		t.Fatalf("did not expect mismatched value to match")
	}
	if (domain.MarkerCriterion{Key: "missing"}).Match(view, marked) {
		t.Fatalf("did not expect missing key to match")
	}
}

func TestPredicateCriterion(t *testing.T) {
	t.Parallel()
	view := graphView()
	byName := domain.PredicateCriterion{Fn: func(t domain.TypeDescriptor) bool {
		return strings.HasSuffix(t.Name, ".Echo")
	}}
	if !byName.Match(view, view["mod.Echo"]) {
		t.Fatalf("expected predicate to match")
	}
	if byName.Match(view, view["mod.Base"]) {
		t.Fatalf("did not expect predicate to match")
	}
	if (domain.PredicateCriterion{}).Match(view, view["mod.Echo"]) {
		t.Fatalf("nil predicate must never match")
	}
}

func TestSearchCriteriaAdd(t *testing.T) {
	t.Parallel()
	criteria := domain.NewSearchCriteria()

	if err := criteria.Add("commands", domain.ImplementsCriterion{Interface: "sdk.Command"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := criteria.Add("commands", domain.MarkerCriterion{Key: "export"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected duplicate label to be a configuration error, got %v", err)
	}
	if err := criteria.Add("", domain.MarkerCriterion{Key: "export"}); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected empty label to be a configuration error, got %v", err)
	}
	if err := criteria.Add("nil", nil); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected nil criterion to be a configuration error, got %v", err)
	}
	if criteria.Len() != 1 {
		t.Fatalf("expected one criterion, got %d", criteria.Len())
	}
}

func TestSearchCriteriaMatchOrder(t *testing.T) {
	t.Parallel()
	view := graphView()
	criteria := domain.NewSearchCriteria()
	if err := criteria.Add("exported", domain.MarkerCriterion{Key: "export"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := criteria.Add("beta", domain.MarkerCriterion{Key: "stage", Value: "beta"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	label, ok := criteria.MatchAny(view, view["mod.Marked"])
	if !ok || label != "exported" {
		t.Fatalf("MatchAny = (%q, %v), want first registered label", label, ok)
	}

	all := criteria.MatchAll(view, view["mod.Marked"])
	if len(all) != 2 || all[0] != "exported" || all[1] != "beta" {
		t.Fatalf("MatchAll = %v, want registration order", all)
	}

	if _, ok := criteria.MatchAny(view, view["mod.Echo"]); ok {
		t.Fatalf("did not expect unmarked type to match")
	}
}
