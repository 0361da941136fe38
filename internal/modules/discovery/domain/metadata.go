package domain

import "time"

// ModuleMetadata is everything the probe learns about a module file
// without executing it: declared identity, the embedded type catalog, and
// whatever build information the binary happens to carry.
type ModuleMetadata struct {
	Path string
	// Module is the identity the metadata blob declares.
	Module string
	// GoModule is the main module recorded in the binary's build info,
	// empty when the file carries none.
	GoModule string
	Types    []TypeDescriptor
}

// TypeByName returns the declared type with the given fully qualified name.
func (m ModuleMetadata) TypeByName(name string) (TypeDescriptor, bool) {
	for _, t := range m.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeDescriptor{}, false
}

// Plugins returns the subset of declared types exported as plugins, in
// declaration order.
func (m ModuleMetadata) Plugins() []TypeDescriptor {
	var out []TypeDescriptor
	for _, t := range m.Types {
		if t.IsPlugin() {
			out = append(out, t)
		}
	}
	return out
}

// ResolutionEnvironment is the per-probe set of module files used to
// resolve type references found in a candidate's metadata, plus the
// runtime's builtin type universe. Transient: rebuilt per probe, never
// persisted.
type ResolutionEnvironment struct {
	// ModulePaths is ordered and deduplicated; the candidate itself is
	// always the first entry.
	ModulePaths []string
	Builtins    []TypeDescriptor
}

// CatalogState is the folder catalog lifecycle.
type CatalogState string

const (
	StateCreated      CatalogState = "created"
	StateInitializing CatalogState = "initializing"
	StateInitialized  CatalogState = "initialized"
)

// LoadFailure records a module that probed clean but failed to load under
// the lenient policy.
type LoadFailure struct {
	ModulePath string
	Err        error
}

// ScanRecord is the durable projection of one completed scan.
type ScanRecord struct {
	ScanID     string
	FolderPath string
	ScannedAt  time.Time
	Plugins    []Plugin
}

// CandidateReport is the doctor's verdict on one enumerated file.
type CandidateReport struct {
	Path string
	// DisplayName is derived from the file name under the naming options.
	DisplayName   string
	Module        string
	Recognized    bool
	MatchedLabels []string
	Detail        string
}
