package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

// FolderCatalog aggregates the plugins of every accepted module in one
// folder behind a single interface. Probing runs concurrently across
// candidates, but the published child order is always canonical-path
// order, so List and Get are reproducible across runs.
type FolderCatalog struct {
	opts     domain.Options
	criteria domain.SearchCriteria
	probe    *Probe
	paths    *PathBuilder
	factory  discoveryout.ModuleCatalogFactory

	mu       sync.RWMutex
	state    domain.CatalogState
	children []discoveryout.ModuleCatalog
	failures []domain.LoadFailure
}

func NewFolderCatalog(opts domain.Options, criteria domain.SearchCriteria, probe *Probe, paths *PathBuilder, factory discoveryout.ModuleCatalogFactory) (*FolderCatalog, error) {
	opts = opts.Normalized()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &FolderCatalog{
		opts:     opts,
		criteria: criteria,
		probe:    probe,
		paths:    paths,
		factory:  factory,
		state:    domain.StateCreated,
	}, nil
}

// Options returns the normalized options the catalog was built with.
func (c *FolderCatalog) Options() domain.Options {
	return c.opts
}

// Initialize scans the folder exactly once. A second call is rejected:
// re-scanning an initialized catalog would duplicate its children. On
// error or cancellation nothing is published and the catalog returns to
// the created state; re-running Initialize is the retry mechanism.
func (c *FolderCatalog) Initialize(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case domain.StateInitializing:
		c.mu.Unlock()
		return domain.ErrInitializing
	case domain.StateInitialized:
		c.mu.Unlock()
		return domain.ErrAlreadyInitialized
	}
	c.state = domain.StateInitializing
	c.mu.Unlock()

	children, failures, err := c.scan(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = domain.StateCreated
		return err
	}
	c.children = children
	c.failures = failures
	c.state = domain.StateInitialized
	return nil
}

type scanSlot struct {
	catalog discoveryout.ModuleCatalog
	failure *domain.LoadFailure
}

func (c *FolderCatalog) scan(ctx context.Context) ([]discoveryout.ModuleCatalog, []domain.LoadFailure, error) {
	candidates, err := c.enumerate()
	if err != nil {
		return nil, nil, err
	}

	// One slot per candidate: each goroutine writes only its own index,
	// and the candidate list is already canonically sorted, so assembly
	// below is deterministic no matter how probes interleave.
	slots := make([]scanSlot, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxProbeWorkers)
	for i, path := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return c.scanOne(gctx, path, &slots[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var children []discoveryout.ModuleCatalog
	var failures []domain.LoadFailure
	for _, slot := range slots {
		if slot.catalog != nil {
			children = append(children, slot.catalog)
		}
		if slot.failure != nil {
			failures = append(failures, *slot.failure)
		}
	}
	return children, failures, nil
}

// scanOne probes one candidate and, when accepted, immediately loads it:
// module catalog initialization runs concurrently with remaining probes.
func (c *FolderCatalog) scanOne(ctx context.Context, path string, slot *scanSlot) error {
	env, err := c.paths.Build(path, c.opts)
	if err != nil {
		// Environment construction only fails on caller misconfiguration,
		// which poisons every candidate equally. Abort the scan.
		return err
	}
	ok, err := c.probe.Probe(ctx, path, env, c.criteria)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Unreadable candidates are skipped like non-modules.
		return nil
	}
	if !ok {
		return nil
	}

	catalog := c.factory.New(path, c.opts)
	if err := catalog.Initialize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.opts.LoadPolicy == domain.LoadStrict {
			return fmt.Errorf("load module %s: %w", path, err)
		}
		slot.failure = &domain.LoadFailure{ModulePath: path, Err: err}
		return nil
	}
	slot.catalog = catalog
	return nil
}

// enumerate lists candidate files under the folder matching the search
// patterns, deduplicated by canonical path and sorted. A file matched by
// two overlapping patterns is probed once.
func (c *FolderCatalog) enumerate() ([]string, error) {
	info, err := os.Stat(c.opts.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("%w: folder %q: %v", domain.ErrConfiguration, c.opts.FolderPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a folder", domain.ErrConfiguration, c.opts.FolderPath)
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(path string) {
		canonical := canonicalPath(path)
		if _, ok := seen[canonical]; ok {
			return
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}

	if c.opts.IncludeSubfolders {
		err := filepath.WalkDir(c.opts.FolderPath, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if matchesAny(c.opts.SearchPatterns, d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: walk folder %q: %v", domain.ErrConfiguration, c.opts.FolderPath, err)
		}
	} else {
		entries, err := os.ReadDir(c.opts.FolderPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read folder %q: %v", domain.ErrConfiguration, c.opts.FolderPath, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if matchesAny(c.opts.SearchPatterns, entry.Name()) {
				add(filepath.Join(c.opts.FolderPath, entry.Name()))
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

// IsInitialized reports whether Initialize has completed successfully.
func (c *FolderCatalog) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == domain.StateInitialized
}

// List returns every child catalog's plugins concatenated in child order.
// Duplicate identifiers across modules are not collapsed.
func (c *FolderCatalog) List() ([]domain.Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != domain.StateInitialized {
		return nil, domain.ErrNotInitialized
	}
	var out []domain.Plugin
	for _, child := range c.children {
		out = append(out, child.List()...)
	}
	return out, nil
}

// Get returns the first plugin matching name and version across child
// catalogs in append order: first-registered-wins is the tie-break for
// duplicate identifiers.
func (c *FolderCatalog) Get(name, version string) (domain.Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != domain.StateInitialized {
		return domain.Plugin{}, domain.ErrNotInitialized
	}
	for _, child := range c.children {
		if p, ok := child.Get(name, version); ok {
			return p, nil
		}
	}
	return domain.Plugin{}, fmt.Errorf("%w: %s %s", domain.ErrPluginNotFound, name, version)
}

// Modules returns the accepted module paths in child order.
func (c *FolderCatalog) Modules() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != domain.StateInitialized {
		return nil, domain.ErrNotInitialized
	}
	out := make([]string, 0, len(c.children))
	for _, child := range c.children {
		out = append(out, child.Path())
	}
	return out, nil
}

// LoadFailures returns the modules skipped under the lenient load policy
// during the last successful Initialize.
func (c *FolderCatalog) LoadFailures() []domain.LoadFailure {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.LoadFailure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Doctor inspects every candidate file and reports whether it is a
// recognizable module and which criteria it satisfies. Read-only and
// valid in any state: it never touches the published children.
func (c *FolderCatalog) Doctor(ctx context.Context) ([]domain.CandidateReport, error) {
	candidates, err := c.enumerate()
	if err != nil {
		return nil, err
	}
	reports := make([]domain.CandidateReport, 0, len(candidates))
	for _, path := range candidates {
		report := domain.CandidateReport{Path: path, DisplayName: c.opts.Naming.ModuleName(path)}
		md, err := c.probe.ReadMetadata(ctx, path)
		if err != nil {
			if !errors.Is(err, domain.ErrNotAModule) && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Detail = err.Error()
			reports = append(reports, report)
			continue
		}
		report.Recognized = true
		report.Module = md.Module
		env, err := c.paths.Build(path, c.opts)
		if err != nil {
			report.Detail = err.Error()
			reports = append(reports, report)
			continue
		}
		report.MatchedLabels = c.probe.Match(ctx, md, env, c.criteria)
		reports = append(reports, report)
	}
	return reports, nil
}
