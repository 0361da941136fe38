package domain

import (
	"errors"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	ErrNotInitialized     = errors.New("folder catalog is not initialized")
	ErrAlreadyInitialized = errors.New("folder catalog is already initialized")
	ErrInitializing       = errors.New("folder catalog initialization is in progress")
	ErrConfiguration      = errors.New("invalid folder catalog configuration")
	ErrNotAModule         = errors.New("file is not a plugin module")
	ErrPluginNotFound     = errors.New("plugin not found")
)

// Plugin is one discovered capability: a named, versioned type exported by
// an accepted module. Immutable; constructed only by the module catalog
// that owns the underlying type.
type Plugin struct {
	Name             string
	Version          string
	SourceModulePath string
	TypeName         string
}

// Matches reports whether the plugin answers a lookup by name and version.
// An empty version matches any version of the name.
func (p Plugin) Matches(name, version string) bool {
	if p.Name != name {
		return false
	}
	if version == "" {
		return true
	}
	return CanonicalVersion(p.Version) == CanonicalVersion(version)
}

// CanonicalVersion normalizes a declared version to canonical semver form
// ("1.2" -> "v1.2.0"). Versions that do not parse are returned verbatim so
// lookups against them stay exact-match.
func CanonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	candidate := v
	if !strings.HasPrefix(candidate, "v") {
		candidate = "v" + candidate
	}
	if !semver.IsValid(candidate) {
		return v
	}
	return semver.Canonical(candidate)
}
