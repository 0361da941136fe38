package out

import (
	"context"

	"plugdir/internal/modules/discovery/domain"
)

// MetadataSource reads a module file's embedded metadata without executing
// any of its code. A file without recognizable metadata yields
// domain.ErrNotAModule.
type MetadataSource interface {
	Read(ctx context.Context, path string) (domain.ModuleMetadata, error)
}

// TypeFinder is the matching engine: given criteria and a read-only type
// view it reports which declared types satisfy any criterion.
type TypeFinder interface {
	Find(criteria domain.SearchCriteria, view domain.TypeView) []domain.TypeDescriptor
	FindAny(criteria domain.SearchCriteria, view domain.TypeView) (domain.TypeDescriptor, bool)
}

// ModuleCatalog owns the lifecycle of one accepted module: loading, plugin
// enumeration, name/version lookup. The loaded module handle never leaks
// across catalogs.
type ModuleCatalog interface {
	Initialize(ctx context.Context) error
	List() []domain.Plugin
	Get(name, version string) (domain.Plugin, bool)
	Path() string
}

// ModuleCatalogFactory builds the catalog for one accepted module.
type ModuleCatalogFactory interface {
	New(path string, opts domain.Options) ModuleCatalog
}

// ScanProjector persists the outcome of a completed scan for later
// lookup without rescanning.
type ScanProjector interface {
	Project(ctx context.Context, record domain.ScanRecord) error
	LastScan(ctx context.Context) (domain.ScanRecord, error)
	Reset(ctx context.Context) error
}

// OptionsStore loads folder catalog options and named criteria from the
// scan root's configuration file.
type OptionsStore interface {
	Load(ctx context.Context) (domain.Options, domain.SearchCriteria, error)
}
