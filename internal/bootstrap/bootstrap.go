package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	discoveryinadapter "plugdir/internal/modules/discovery/adapter/in"
	discoveryoutadapter "plugdir/internal/modules/discovery/adapter/out"
	discoveryin "plugdir/internal/modules/discovery/port/in"
	"plugdir/internal/modules/discovery/service"
	"plugdir/internal/modules/discovery/usecase"
	"plugdir/internal/platform/clock"
	"plugdir/internal/platform/config"
	"plugdir/internal/platform/id"
	uiapp "plugdir/internal/ui/app"
	"plugdir/sdk/meta"
)

type App struct {
	DiscoveryCLI discoveryinadapter.CLIHandler
	Discovery    discoveryin.Usecase
}

func New(cfg config.Config) (*App, error) {
	clk := clock.SystemClock{}
	ids := id.RandomHex{}

	store := discoveryoutadapter.NewFileOptionsStore(cfg.RootPath)
	opts, criteria, err := store.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if opts.FolderPath == "" {
		opts.FolderPath = cfg.RootPath
	}

	source := discoveryoutadapter.NewBlobMetadataSource()
	probe := service.NewProbe(source, discoveryoutadapter.NewDescriptorFinder())
	paths := service.NewPathBuilder(discoveryoutadapter.Descriptors(meta.Builtins()))
	catalog, err := service.NewFolderCatalog(opts, criteria, probe, paths, discoveryoutadapter.NewModuleCatalogFactory(source))
	if err != nil {
		return nil, err
	}

	projector, err := discoveryoutadapter.NewSQLiteScanProjector(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new scan projector: %w", err)
	}

	uc := usecase.NewInteractor(catalog, projector, clk, ids)
	return &App{
		DiscoveryCLI: discoveryinadapter.NewCLIHandler(uc),
		Discovery:    uc,
	}, nil
}

func RunTUI(app *App) error {
	program := tea.NewProgram(uiapp.New(app.Discovery), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
