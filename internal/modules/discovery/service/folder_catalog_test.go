package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	discoveryout "plugdir/internal/modules/discovery/adapter/out"
	"plugdir/internal/modules/discovery/domain"
	portout "plugdir/internal/modules/discovery/port/out"
	"plugdir/internal/modules/discovery/service"
	"plugdir/sdk/meta"
)

// writeModule writes a fake module file: arbitrary leading bytes followed
// by an embedded metadata blob, the same shape a compiled plugin carries.
func writeModule(t *testing.T, path string, doc meta.Document) {
	t.Helper()
	content := "\x7fELF fake binary prologue " + meta.MustBlob(doc) + " trailing data"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write module %s: %v", path, err)
	}
}

func commandModule(module, typeName, pluginName, version string) meta.Document {
	return meta.Document{
		Format: meta.FormatVersion,
		Module: module,
		Types: []meta.Type{{
			Name:       typeName,
			Kind:       "struct",
			Implements: []string{"plugdir/sdk.Command"},
			Plugin:     &meta.PluginDecl{Name: pluginName, Version: version},
		}},
	}
}

func newCatalog(t *testing.T, opts domain.Options, criteria domain.SearchCriteria) *service.FolderCatalog {
	t.Helper()
	source := discoveryout.NewBlobMetadataSource()
	probe := service.NewProbe(source, discoveryout.NewDescriptorFinder())
	paths := service.NewPathBuilder(discoveryout.Descriptors(meta.Builtins()))
	catalog, err := service.NewFolderCatalog(opts, criteria, probe, paths, discoveryout.NewModuleCatalogFactory(source))
	if err != nil {
		t.Fatalf("new folder catalog: %v", err)
	}
	return catalog
}

func TestFolderCatalogEmptyFolder(t *testing.T) {
	t.Parallel()
	catalog := newCatalog(t, domain.Options{FolderPath: t.TempDir()}, domain.NewSearchCriteria())

	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !catalog.IsInitialized() {
		t.Fatalf("expected initialized state")
	}
	plugins, err := catalog.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plugins) != 0 {
		t.Fatalf("expected no plugins, got %d", len(plugins))
	}
}

func TestFolderCatalogSkipsNonModules(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "real.plug"), commandModule("example/real", "example/real.Echo", "echo", "1.0.0"))
	if err := os.WriteFile(filepath.Join(dir, "junk.plug"), []byte("no blob in here"), 0o755); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored by pattern"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	catalog := newCatalog(t, domain.Options{FolderPath: dir}, domain.NewSearchCriteria())
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	plugins, err := catalog.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "echo" {
		t.Fatalf("plugins = %+v, want only echo", plugins)
	}
}

func TestFolderCatalogDeterministicOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Written out of lexical order on purpose.
	writeModule(t, filepath.Join(dir, "zz.plug"), commandModule("example/zz", "example/zz.Last", "last", "1.0.0"))
	writeModule(t, filepath.Join(dir, "aa.plug"), commandModule("example/aa", "example/aa.First", "first", "1.0.0"))
	writeModule(t, filepath.Join(dir, "mm.plug"), commandModule("example/mm", "example/mm.Middle", "middle", "1.0.0"))

	for run := 0; run < 3; run++ {
		catalog := newCatalog(t, domain.Options{FolderPath: dir, MaxProbeWorkers: 4}, domain.NewSearchCriteria())
		if err := catalog.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		plugins, err := catalog.List()
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(plugins) != 3 {
			t.Fatalf("expected three plugins, got %d", len(plugins))
		}
		if plugins[0].Name != "first" || plugins[1].Name != "middle" || plugins[2].Name != "last" {
			t.Fatalf("run %d: order = [%s %s %s], want canonical path order", run, plugins[0].Name, plugins[1].Name, plugins[2].Name)
		}
	}
}

func TestFolderCatalogOverlappingPatternsProbeOnce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "echo.plug"), commandModule("example/echo", "example/echo.Echo", "echo", "1.0.0"))

	opts := domain.Options{FolderPath: dir, SearchPatterns: []string{"*.plug", "echo.*"}}
	catalog := newCatalog(t, opts, domain.NewSearchCriteria())
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	plugins, err := catalog.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plugins) != 1 {
		t.Fatalf("expected one plugin despite overlapping patterns, got %d", len(plugins))
	}
}

func TestFolderCatalogSubfolders(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeModule(t, filepath.Join(dir, "top.plug"), commandModule("example/top", "example/top.Top", "top", "1.0.0"))
	writeModule(t, filepath.Join(sub, "deep.plug"), commandModule("example/deep", "example/deep.Deep", "deep", "1.0.0"))

	flat := newCatalog(t, domain.Options{FolderPath: dir}, domain.NewSearchCriteria())
	if err := flat.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize flat: %v", err)
	}
	plugins, _ := flat.List()
	if len(plugins) != 1 || plugins[0].Name != "top" {
		t.Fatalf("flat scan plugins = %+v, want only top", plugins)
	}

	deep := newCatalog(t, domain.Options{FolderPath: dir, IncludeSubfolders: true}, domain.NewSearchCriteria())
	if err := deep.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize deep: %v", err)
	}
	plugins, _ = deep.List()
	if len(plugins) != 2 {
		t.Fatalf("deep scan found %d plugins, want 2", len(plugins))
	}
}

func TestFolderCatalogCriteriaFiltering(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "cmd.plug"), commandModule("example/cmd", "example/cmd.Echo", "echo", "1.0.0"))
	writeModule(t, filepath.Join(dir, "other.plug"), meta.Document{
		Format: meta.FormatVersion,
		Module: "example/other",
		Types: []meta.Type{{
			Name:   "example/other.Helper",
			Kind:   "struct",
			Plugin: &meta.PluginDecl{Name: "helper", Version: "1.0.0"},
		}},
	})

	criteria := domain.NewSearchCriteria()
	if err := criteria.Add("commands", domain.ImplementsCriterion{Interface: "plugdir/sdk.Command"}); err != nil {
		t.Fatalf("add criterion: %v", err)
	}
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, criteria)
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	plugins, err := catalog.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "echo" {
		t.Fatalf("plugins = %+v, want only the command module accepted", plugins)
	}
}

func TestFolderCatalogTransitiveResolutionThroughSibling(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// The candidate only extends lib.Base; the interface fact lives in the
	// sibling module, reachable because the folder's own modules join the
	// resolution environment under the default host policy.
	writeModule(t, filepath.Join(dir, "app.plug"), meta.Document{
		Format: meta.FormatVersion,
		Module: "example/app",
		Types: []meta.Type{{
			Name:    "example/app.Widget",
			Kind:    "struct",
			Extends: "example/lib.Base",
			Plugin:  &meta.PluginDecl{Name: "widget", Version: "2.0.0"},
		}},
	})
	writeModule(t, filepath.Join(dir, "lib.plug"), meta.Document{
		Format: meta.FormatVersion,
		Module: "example/lib",
		Types: []meta.Type{{
			Name:       "example/lib.Base",
			Kind:       "struct",
			Implements: []string{"plugdir/sdk.Renderer"},
		}},
	})

	criteria := domain.NewSearchCriteria()
	if err := criteria.Add("renderers", domain.ImplementsCriterion{Interface: "plugdir/sdk.Renderer"}); err != nil {
		t.Fatalf("add criterion: %v", err)
	}
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, criteria)
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := catalog.Get("widget", ""); err != nil {
		t.Fatalf("expected widget accepted via sibling resolution: %v", err)
	}
}

func TestFolderCatalogBuiltinResolution(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Command is a builtin that embeds Plugin; the module never declares
	// either, yet the implements closure still reaches Plugin.
	writeModule(t, filepath.Join(dir, "cmd.plug"), commandModule("example/cmd", "example/cmd.Echo", "echo", "1.0.0"))

	criteria := domain.NewSearchCriteria()
	if err := criteria.Add("plugins", domain.ImplementsCriterion{Interface: "plugdir/sdk.Plugin"}); err != nil {
		t.Fatalf("add criterion: %v", err)
	}
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, criteria)
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := catalog.Get("echo", ""); err != nil {
		t.Fatalf("expected builtin chain to accept the module: %v", err)
	}
}

func TestFolderCatalogLifecycle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "echo.plug"), commandModule("example/echo", "example/echo.Echo", "echo", "1.0.0"))
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, domain.NewSearchCriteria())

	if _, err := catalog.List(); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("List before init: %v, want ErrNotInitialized", err)
	}
	if _, err := catalog.Get("echo", ""); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("Get before init: %v, want ErrNotInitialized", err)
	}

	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := catalog.Initialize(context.Background()); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Fatalf("second initialize: %v, want ErrAlreadyInitialized", err)
	}
}

func TestFolderCatalogGetSemantics(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "a.plug"), commandModule("example/a", "example/a.Dup", "dup", "1.0.0"))
	writeModule(t, filepath.Join(dir, "b.plug"), commandModule("example/b", "example/b.Dup", "dup", "2.0.0"))

	catalog := newCatalog(t, domain.Options{FolderPath: dir}, domain.NewSearchCriteria())
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Duplicate identifiers: the first-registered module wins.
	p, err := catalog.Get("dup", "")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.TypeName != "example/a.Dup" {
		t.Fatalf("Get(dup) = %+v, want the module from a.plug", p)
	}

	// A version pins the lookup past the first match.
	p, err = catalog.Get("dup", "2.0.0")
	if err != nil {
		t.Fatalf("get versioned: %v", err)
	}
	if p.TypeName != "example/b.Dup" {
		t.Fatalf("Get(dup, 2.0.0) = %+v, want the module from b.plug", p)
	}

	if _, err := catalog.Get("missing", ""); !errors.Is(err, domain.ErrPluginNotFound) {
		t.Fatalf("Get(missing): %v, want ErrPluginNotFound", err)
	}
	if _, err := catalog.Get("dup", "9.9.9"); !errors.Is(err, domain.ErrPluginNotFound) {
		t.Fatalf("Get(dup, 9.9.9): %v, want ErrPluginNotFound", err)
	}
}

func TestFolderCatalogCancellation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "echo.plug"), commandModule("example/echo", "example/echo.Echo", "echo", "1.0.0"))
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, domain.NewSearchCriteria())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := catalog.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled initialize: %v, want context.Canceled", err)
	}
	if catalog.IsInitialized() {
		t.Fatalf("canceled scan must publish nothing")
	}

	// Re-running Initialize is the retry path.
	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("retry initialize: %v", err)
	}
	if !catalog.IsInitialized() {
		t.Fatalf("expected retry to initialize")
	}
}

func TestFolderCatalogMissingFolder(t *testing.T) {
	t.Parallel()
	catalog := newCatalog(t, domain.Options{FolderPath: filepath.Join(t.TempDir(), "absent")}, domain.NewSearchCriteria())
	if err := catalog.Initialize(context.Background()); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("missing folder: %v, want ErrConfiguration", err)
	}
	if catalog.IsInitialized() {
		t.Fatalf("failed scan must not initialize")
	}
}

// failingFactory loads the module at failPath with an error and everything
// else statically.
type failingFactory struct {
	inner    portout.ModuleCatalogFactory
	failPath string
}

func (f failingFactory) New(path string, opts domain.Options) portout.ModuleCatalog {
	if filepath.Base(path) == f.failPath {
		return failingCatalog{path: path}
	}
	return f.inner.New(path, opts)
}

type failingCatalog struct {
	path string
}

func (c failingCatalog) Initialize(context.Context) error {
	return fmt.Errorf("refused to load %s", c.path)
}

func (c failingCatalog) List() []domain.Plugin            { return nil }
func (c failingCatalog) Get(string, string) (domain.Plugin, bool) { return domain.Plugin{}, false }
func (c failingCatalog) Path() string                     { return c.path }

func newCatalogWithFactory(t *testing.T, opts domain.Options, factory portout.ModuleCatalogFactory) *service.FolderCatalog {
	t.Helper()
	source := discoveryout.NewBlobMetadataSource()
	probe := service.NewProbe(source, discoveryout.NewDescriptorFinder())
	paths := service.NewPathBuilder(discoveryout.Descriptors(meta.Builtins()))
	catalog, err := service.NewFolderCatalog(opts, domain.NewSearchCriteria(), probe, paths, factory)
	if err != nil {
		t.Fatalf("new folder catalog: %v", err)
	}
	return catalog
}

func TestFolderCatalogLenientLoadFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "bad.plug"), commandModule("example/bad", "example/bad.Echo", "bad-echo", "1.0.0"))
	writeModule(t, filepath.Join(dir, "good.plug"), commandModule("example/good", "example/good.Echo", "good-echo", "1.0.0"))

	source := discoveryout.NewBlobMetadataSource()
	factory := failingFactory{inner: discoveryout.NewModuleCatalogFactory(source), failPath: "bad.plug"}
	catalog := newCatalogWithFactory(t, domain.Options{FolderPath: dir}, factory)

	if err := catalog.Initialize(context.Background()); err != nil {
		t.Fatalf("lenient initialize: %v", err)
	}
	plugins, err := catalog.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "good-echo" {
		t.Fatalf("plugins = %+v, want only the loadable module", plugins)
	}
	failures := catalog.LoadFailures()
	if len(failures) != 1 || filepath.Base(failures[0].ModulePath) != "bad.plug" {
		t.Fatalf("failures = %+v, want the refused module recorded", failures)
	}
}

func TestFolderCatalogStrictLoadFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "bad.plug"), commandModule("example/bad", "example/bad.Echo", "bad-echo", "1.0.0"))

	source := discoveryout.NewBlobMetadataSource()
	factory := failingFactory{inner: discoveryout.NewModuleCatalogFactory(source), failPath: "bad.plug"}
	catalog := newCatalogWithFactory(t, domain.Options{FolderPath: dir, LoadPolicy: domain.LoadStrict}, factory)

	if err := catalog.Initialize(context.Background()); err == nil {
		t.Fatalf("expected strict policy to abort the scan")
	}
	if catalog.IsInitialized() {
		t.Fatalf("aborted scan must not initialize")
	}
}

func TestFolderCatalogDoctor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeModule(t, filepath.Join(dir, "cmd.plug"), commandModule("example/cmd", "example/cmd.Echo", "echo", "1.0.0"))
	if err := os.WriteFile(filepath.Join(dir, "junk.plug"), []byte("no blob"), 0o755); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	criteria := domain.NewSearchCriteria()
	if err := criteria.Add("commands", domain.ImplementsCriterion{Interface: "plugdir/sdk.Command"}); err != nil {
		t.Fatalf("add criterion: %v", err)
	}
	catalog := newCatalog(t, domain.Options{FolderPath: dir}, criteria)

	// Doctor is valid before Initialize.
	reports, err := catalog.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected two candidate reports, got %d", len(reports))
	}
	byBase := map[string]domain.CandidateReport{}
	for _, r := range reports {
		byBase[filepath.Base(r.Path)] = r
	}
	cmd := byBase["cmd.plug"]
	if !cmd.Recognized || cmd.Module != "example/cmd" {
		t.Fatalf("cmd report = %+v, want recognized module", cmd)
	}
	if cmd.DisplayName != "cmd" {
		t.Fatalf("display name = %q, want file-derived name", cmd.DisplayName)
	}
	if len(cmd.MatchedLabels) != 1 || cmd.MatchedLabels[0] != "commands" {
		t.Fatalf("cmd labels = %v, want [commands]", cmd.MatchedLabels)
	}
	junk := byBase["junk.plug"]
	if junk.Recognized || junk.Detail == "" {
		t.Fatalf("junk report = %+v, want unrecognized with detail", junk)
	}
}
