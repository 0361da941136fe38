package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"plugdir/internal/modules/discovery/domain"
)

// PathBuilder computes the resolution environment for one candidate: the
// module files consulted when a probe chases a type reference out of the
// candidate's own metadata. Deterministic for identical inputs; directory
// listings are cached because candidates in one folder share directories.
type PathBuilder struct {
	builtins []domain.TypeDescriptor

	mu       sync.Mutex
	dirCache map[string][]string
}

func NewPathBuilder(builtins []domain.TypeDescriptor) *PathBuilder {
	return &PathBuilder{builtins: builtins, dirCache: map[string][]string{}}
}

// Build assembles the environment for candidatePath under opts. An
// unreadable additional path or an unresolvable selected host module is a
// configuration error: it signals caller misconfiguration, not an
// artifact-of-the-data problem, so it is surfaced rather than dropped.
func (b *PathBuilder) Build(candidatePath string, opts domain.Options) (domain.ResolutionEnvironment, error) {
	env := domain.ResolutionEnvironment{Builtins: b.builtins}
	seen := map[string]struct{}{}
	add := func(path string) {
		canonical := canonicalPath(path)
		if _, ok := seen[canonical]; ok {
			return
		}
		seen[canonical] = struct{}{}
		env.ModulePaths = append(env.ModulePaths, canonical)
	}

	add(candidatePath)

	for _, dir := range opts.AdditionalResolutionPaths {
		files, err := b.moduleFiles(dir, opts.SearchPatterns, false)
		if err != nil {
			return domain.ResolutionEnvironment{}, fmt.Errorf("%w: additional resolution path %q: %v", domain.ErrConfiguration, dir, err)
		}
		for _, f := range files {
			add(f)
		}
	}

	switch opts.HostPolicy {
	case domain.HostModulesAlways:
		files, err := b.moduleFiles(opts.HostRoot, opts.SearchPatterns, true)
		if err != nil {
			return domain.ResolutionEnvironment{}, fmt.Errorf("%w: host root %q: %v", domain.ErrConfiguration, opts.HostRoot, err)
		}
		for _, f := range files {
			add(f)
		}
	case domain.HostModulesNever:
		files, err := b.moduleFiles(filepath.Dir(candidatePath), opts.SearchPatterns, true)
		if err == nil {
			for _, f := range files {
				add(f)
			}
		}
	case domain.HostModulesSelected:
		for _, name := range opts.SelectedHostModules {
			path, err := b.resolveSelected(name, opts)
			if err != nil {
				return domain.ResolutionEnvironment{}, err
			}
			add(path)
		}
	}

	return env, nil
}

func (b *PathBuilder) resolveSelected(name string, opts domain.Options) (string, error) {
	roots := make([]string, 0, len(opts.AdditionalResolutionPaths)+1)
	if opts.HostRoot != "" {
		roots = append(roots, opts.HostRoot)
	}
	roots = append(roots, opts.AdditionalResolutionPaths...)
	for _, root := range roots {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: selected host module %q not found", domain.ErrConfiguration, name)
}

// moduleFiles lists the module files under dir, optionally recursively,
// matched by base name against patterns. Results are sorted by the walk
// order of the filesystem, which is itself lexical.
func (b *PathBuilder) moduleFiles(dir string, patterns []string, recursive bool) ([]string, error) {
	key := fmt.Sprintf("%s|%v|%v", dir, recursive, patterns)
	b.mu.Lock()
	cached, ok := b.dirCache[key]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if matchesAny(patterns, d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if matchesAny(patterns, entry.Name()) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	}

	b.mu.Lock()
	b.dirCache[key] = files
	b.mu.Unlock()
	return files, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// canonicalPath is the identity used for dedup and ordering: absolute and
// cleaned, but symlinks untouched so the published path stays the one the
// caller configured.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
