package domain

import "fmt"

// TypeDescriptor is the read-only, metadata-level view of one declared
// type: identity, base type, implemented interfaces, attached markers.
// It carries no loaded code.
type TypeDescriptor struct {
	Name       string
	Kind       string
	Extends    string
	Implements []string
	Markers    map[string]string
	PluginName string
	PluginVer  string
}

// IsPlugin reports whether the type declares itself as an exported plugin.
func (t TypeDescriptor) IsPlugin() bool {
	return t.PluginName != ""
}

// TypeView is the resolvable type graph a probe evaluates criteria
// against. Resolve follows references into the resolution environment;
// a false return means the name could not be resolved, which callers
// treat as a non-match, never as a failure.
type TypeView interface {
	Types() []TypeDescriptor
	Resolve(name string) (TypeDescriptor, bool)
}

// Criterion decides whether one type is plugin-worthy.
type Criterion interface {
	Match(view TypeView, t TypeDescriptor) bool
}

// ImplementsCriterion matches types whose transitive interface closure,
// walked through base types and embedded interfaces, contains Interface.
type ImplementsCriterion struct {
	Interface string
}

func (c ImplementsCriterion) Match(view TypeView, t TypeDescriptor) bool {
	return implementsWithin(view, t, c.Interface, map[string]struct{}{})
}

func implementsWithin(view TypeView, t TypeDescriptor, iface string, visited map[string]struct{}) bool {
	if _, ok := visited[t.Name]; ok {
		return false
	}
	visited[t.Name] = struct{}{}
	for _, name := range t.Implements {
		if name == iface {
			return true
		}
		if impl, ok := view.Resolve(name); ok && implementsWithin(view, impl, iface, visited) {
			return true
		}
	}
	if t.Extends != "" {
		if t.Extends == iface {
			return true
		}
		if base, ok := view.Resolve(t.Extends); ok {
			return implementsWithin(view, base, iface, visited)
		}
	}
	return false
}

// DerivesCriterion matches types whose base chain reaches Base.
type DerivesCriterion struct {
	Base string
}

func (c DerivesCriterion) Match(view TypeView, t TypeDescriptor) bool {
	visited := map[string]struct{}{}
	for t.Extends != "" {
		if t.Extends == c.Base {
			return true
		}
		if _, ok := visited[t.Extends]; ok {
			return false
		}
		visited[t.Extends] = struct{}{}
		base, ok := view.Resolve(t.Extends)
		if !ok {
			return false
		}
		t = base
	}
	return false
}

// MarkerCriterion matches types carrying the marker Key; a non-empty
// Value additionally requires an exact value match.
type MarkerCriterion struct {
	Key   string
	Value string
}

func (c MarkerCriterion) Match(_ TypeView, t TypeDescriptor) bool {
	got, ok := t.Markers[c.Key]
	if !ok {
		return false
	}
	return c.Value == "" || got == c.Value
}

// PredicateCriterion wraps a caller-supplied closure.
type PredicateCriterion struct {
	Fn func(TypeDescriptor) bool
}

func (c PredicateCriterion) Match(_ TypeView, t TypeDescriptor) bool {
	return c.Fn != nil && c.Fn(t)
}

// SearchCriteria is an ordered set of labeled criteria. A module is
// accepted when any criterion matches any of its types; criteria are
// evaluated independently. Immutable once handed to a catalog.
type SearchCriteria struct {
	labels  []string
	byLabel map[string]Criterion
}

func NewSearchCriteria() SearchCriteria {
	return SearchCriteria{byLabel: map[string]Criterion{}}
}

func (s *SearchCriteria) Add(label string, c Criterion) error {
	if label == "" {
		return fmt.Errorf("%w: criterion label is required", ErrConfiguration)
	}
	if c == nil {
		return fmt.Errorf("%w: criterion %q is nil", ErrConfiguration, label)
	}
	if s.byLabel == nil {
		s.byLabel = map[string]Criterion{}
	}
	if _, ok := s.byLabel[label]; ok {
		return fmt.Errorf("%w: duplicate criterion label %q", ErrConfiguration, label)
	}
	s.labels = append(s.labels, label)
	s.byLabel[label] = c
	return nil
}

func (s SearchCriteria) Len() int {
	return len(s.labels)
}

func (s SearchCriteria) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// MatchAny returns the label of the first criterion satisfied by t.
func (s SearchCriteria) MatchAny(view TypeView, t TypeDescriptor) (string, bool) {
	for _, label := range s.labels {
		if s.byLabel[label].Match(view, t) {
			return label, true
		}
	}
	return "", false
}

// MatchAll returns the labels of every criterion satisfied by t.
func (s SearchCriteria) MatchAll(view TypeView, t TypeDescriptor) []string {
	var out []string
	for _, label := range s.labels {
		if s.byLabel[label].Match(view, t) {
			out = append(out, label)
		}
	}
	return out
}
