package domain

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// HostModulePolicy selects which host-application modules join a probe's
// resolution environment.
type HostModulePolicy string

const (
	HostModulesAlways   HostModulePolicy = "always"
	HostModulesNever    HostModulePolicy = "never"
	HostModulesSelected HostModulePolicy = "selected"
)

func (p HostModulePolicy) Validate() error {
	switch p {
	case HostModulesAlways, HostModulesNever, HostModulesSelected:
		return nil
	default:
		return fmt.Errorf("%w: unknown host module policy %q", ErrConfiguration, p)
	}
}

// LoadFailurePolicy decides what a module that probes clean but fails to
// load does to the rest of the scan.
type LoadFailurePolicy string

const (
	LoadLenient LoadFailurePolicy = "lenient"
	LoadStrict  LoadFailurePolicy = "strict"
)

func (p LoadFailurePolicy) Validate() error {
	switch p {
	case LoadLenient, LoadStrict:
		return nil
	default:
		return fmt.Errorf("%w: unknown load failure policy %q", ErrConfiguration, p)
	}
}

// LoadMode selects how accepted modules are turned into module catalogs.
type LoadMode string

const (
	// LoadModeGRPC launches each accepted module as an isolated go-plugin
	// subprocess and reads its manifest over gRPC.
	LoadModeGRPC LoadMode = "grpc"
	// LoadModeStatic serves plugins straight from probed metadata without
	// ever running the module.
	LoadModeStatic LoadMode = "static"
)

func (m LoadMode) Validate() error {
	switch m {
	case LoadModeGRPC, LoadModeStatic:
		return nil
	default:
		return fmt.Errorf("%w: unknown load mode %q", ErrConfiguration, m)
	}
}

// DefaultSearchPattern matches files with the platform module extension.
const DefaultSearchPattern = "*.plug"

// NamingOptions shapes the display name derived for a module file.
type NamingOptions struct {
	TrimPrefix string
	Lowercase  bool
}

// ModuleName derives a module's display name from its file path.
func (n NamingOptions) ModuleName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimPrefix(name, n.TrimPrefix)
	if n.Lowercase {
		name = strings.ToLower(name)
	}
	return name
}

// Options configures a folder catalog. Supplied once at construction and
// immutable thereafter; safe to share across concurrent probes.
type Options struct {
	FolderPath                string
	SearchPatterns            []string
	IncludeSubfolders         bool
	HostPolicy                HostModulePolicy
	SelectedHostModules       []string
	AdditionalResolutionPaths []string
	Naming                    NamingOptions
	// HostRoot is the host application's module directory. It is always
	// passed explicitly; probing never reads ambient process state.
	HostRoot        string
	LoadPolicy      LoadFailurePolicy
	LoadMode        LoadMode
	MaxProbeWorkers int
}

// Normalized returns a copy with defaults filled in.
func (o Options) Normalized() Options {
	out := o
	if len(out.SearchPatterns) == 0 {
		out.SearchPatterns = []string{DefaultSearchPattern}
	}
	if out.HostPolicy == "" {
		out.HostPolicy = HostModulesNever
	}
	if out.LoadPolicy == "" {
		out.LoadPolicy = LoadLenient
	}
	if out.LoadMode == "" {
		out.LoadMode = LoadModeStatic
	}
	if out.MaxProbeWorkers <= 0 {
		out.MaxProbeWorkers = runtime.GOMAXPROCS(0)
	}
	return out
}

func (o Options) Validate() error {
	if o.FolderPath == "" {
		return fmt.Errorf("%w: folder path is required", ErrConfiguration)
	}
	for _, pattern := range o.SearchPatterns {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("%w: bad search pattern %q", ErrConfiguration, pattern)
		}
	}
	if err := o.HostPolicy.Validate(); err != nil {
		return err
	}
	if err := o.LoadPolicy.Validate(); err != nil {
		return err
	}
	if err := o.LoadMode.Validate(); err != nil {
		return err
	}
	switch o.HostPolicy {
	case HostModulesAlways:
		if o.HostRoot == "" {
			return fmt.Errorf("%w: host policy %q requires an explicit host root", ErrConfiguration, o.HostPolicy)
		}
	case HostModulesSelected:
		if len(o.SelectedHostModules) == 0 {
			return fmt.Errorf("%w: host policy %q requires selected host modules", ErrConfiguration, o.HostPolicy)
		}
	}
	return nil
}
