package service

import (
	"context"
	"errors"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

// Probe decides whether a module file exposes any type satisfying the
// registered criteria, reading metadata only. It never executes candidate
// code: acceptance is decided before any load happens.
type Probe struct {
	source discoveryout.MetadataSource
	finder discoveryout.TypeFinder
}

func NewProbe(source discoveryout.MetadataSource, finder discoveryout.TypeFinder) *Probe {
	return &Probe{source: source, finder: finder}
}

// Probe reports whether the file at path is an acceptable plugin module.
// A file without recognizable metadata is (false, nil): not a module is an
// expected outcome, not an error. With empty criteria every structurally
// valid module is accepted.
func (p *Probe) Probe(ctx context.Context, path string, env domain.ResolutionEnvironment, criteria domain.SearchCriteria) (bool, error) {
	md, err := p.ReadMetadata(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotAModule) {
			return false, nil
		}
		return false, err
	}
	if criteria.Len() == 0 {
		return true, nil
	}
	view := newResolvingView(ctx, p.source, md, env)
	_, ok := p.finder.FindAny(criteria, view)
	return ok, nil
}

// ReadMetadata exposes the raw metadata read for diagnostics.
func (p *Probe) ReadMetadata(ctx context.Context, path string) (domain.ModuleMetadata, error) {
	return p.source.Read(ctx, path)
}

// Match returns the labels of every criterion some type in the module
// satisfies, for doctor-style reporting.
func (p *Probe) Match(ctx context.Context, md domain.ModuleMetadata, env domain.ResolutionEnvironment, criteria domain.SearchCriteria) []string {
	view := newResolvingView(ctx, p.source, md, env)
	seen := map[string]struct{}{}
	var out []string
	for _, t := range md.Types {
		for _, label := range criteria.MatchAll(view, t) {
			if _, ok := seen[label]; !ok {
				seen[label] = struct{}{}
				out = append(out, label)
			}
		}
	}
	return out
}

// resolvingView resolves type references lazily: first against the
// candidate's own declarations, then the builtin runtime universe, then
// the environment's module files, read on demand and cached for the
// lifetime of one probe. A module whose metadata cannot be read simply
// contributes nothing; the unresolved reference degrades to a non-match.
type resolvingView struct {
	ctx     context.Context
	source  discoveryout.MetadataSource
	primary domain.ModuleMetadata
	env     domain.ResolutionEnvironment

	resolved map[string]resolution
	loaded   map[string]*domain.ModuleMetadata
}

type resolution struct {
	desc domain.TypeDescriptor
	ok   bool
}

func newResolvingView(ctx context.Context, source discoveryout.MetadataSource, primary domain.ModuleMetadata, env domain.ResolutionEnvironment) *resolvingView {
	return &resolvingView{
		ctx:      ctx,
		source:   source,
		primary:  primary,
		env:      env,
		resolved: map[string]resolution{},
		loaded:   map[string]*domain.ModuleMetadata{},
	}
}

func (v *resolvingView) Types() []domain.TypeDescriptor {
	return v.primary.Types
}

func (v *resolvingView) Resolve(name string) (domain.TypeDescriptor, bool) {
	if r, ok := v.resolved[name]; ok {
		return r.desc, r.ok
	}
	desc, ok := v.lookup(name)
	v.resolved[name] = resolution{desc: desc, ok: ok}
	return desc, ok
}

func (v *resolvingView) lookup(name string) (domain.TypeDescriptor, bool) {
	if t, ok := v.primary.TypeByName(name); ok {
		return t, true
	}
	for _, t := range v.env.Builtins {
		if t.Name == name {
			return t, true
		}
	}
	for _, path := range v.env.ModulePaths {
		if path == v.primary.Path {
			continue
		}
		md := v.module(path)
		if md == nil {
			continue
		}
		if t, ok := md.TypeByName(name); ok {
			return t, true
		}
	}
	return domain.TypeDescriptor{}, false
}

func (v *resolvingView) module(path string) *domain.ModuleMetadata {
	if md, ok := v.loaded[path]; ok {
		return md
	}
	md, err := v.source.Read(v.ctx, path)
	if err != nil {
		v.loaded[path] = nil
		return nil
	}
	v.loaded[path] = &md
	return &md
}
