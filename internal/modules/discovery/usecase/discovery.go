package usecase

import (
	"context"
	"fmt"

	"plugdir/internal/modules/discovery/domain"
	"plugdir/internal/modules/discovery/dto"
	discoveryin "plugdir/internal/modules/discovery/port/in"
	discoveryout "plugdir/internal/modules/discovery/port/out"
	"plugdir/internal/modules/discovery/service"
	"plugdir/internal/platform/clock"
	"plugdir/internal/platform/id"
)

type Interactor struct {
	catalog   *service.FolderCatalog
	projector discoveryout.ScanProjector
	clk       clock.Clock
	ids       id.Generator
}

func NewInteractor(catalog *service.FolderCatalog, projector discoveryout.ScanProjector, clk clock.Clock, ids id.Generator) discoveryin.Usecase {
	return &Interactor{catalog: catalog, projector: projector, clk: clk, ids: ids}
}

func (i *Interactor) Initialize(ctx context.Context) (dto.ScanResult, error) {
	if err := i.catalog.Initialize(ctx); err != nil {
		return dto.ScanResult{}, err
	}
	plugins, err := i.catalog.List()
	if err != nil {
		return dto.ScanResult{}, err
	}
	modules, err := i.catalog.Modules()
	if err != nil {
		return dto.ScanResult{}, err
	}

	record := domain.ScanRecord{
		ScanID:     i.ids.New(),
		FolderPath: i.catalog.Options().FolderPath,
		ScannedAt:  i.clk.Now(),
		Plugins:    plugins,
	}
	if i.projector != nil {
		if err := i.projector.Project(ctx, record); err != nil {
			return dto.ScanResult{}, fmt.Errorf("project scan: %w", err)
		}
	}

	result := dto.ScanResult{
		ScanID:      record.ScanID,
		FolderPath:  record.FolderPath,
		ModuleCount: len(modules),
		Plugins:     pluginInfos(plugins),
	}
	for _, failure := range i.catalog.LoadFailures() {
		result.LoadFailures = append(result.LoadFailures, dto.LoadFailureInfo{
			ModulePath: failure.ModulePath,
			Error:      failure.Err.Error(),
		})
	}
	return result, nil
}

func (i *Interactor) List(_ context.Context) ([]dto.PluginInfo, error) {
	plugins, err := i.catalog.List()
	if err != nil {
		return nil, err
	}
	return pluginInfos(plugins), nil
}

func (i *Interactor) Get(_ context.Context, name, version string) (dto.PluginInfo, error) {
	p, err := i.catalog.Get(name, version)
	if err != nil {
		return dto.PluginInfo{}, err
	}
	return pluginInfo(p), nil
}

func (i *Interactor) Indexed(ctx context.Context) ([]dto.PluginInfo, error) {
	if i.projector == nil {
		return nil, fmt.Errorf("%w: no scan index configured", domain.ErrConfiguration)
	}
	record, err := i.projector.LastScan(ctx)
	if err != nil {
		return nil, err
	}
	return pluginInfos(record.Plugins), nil
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	reports, err := i.catalog.Doctor(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DoctorResult, 0, len(reports))
	for _, report := range reports {
		out = append(out, dto.DoctorResult{
			Path:          report.Path,
			DisplayName:   report.DisplayName,
			Module:        report.Module,
			Recognized:    report.Recognized,
			MatchedLabels: report.MatchedLabels,
			Detail:        report.Detail,
		})
	}
	return out, nil
}

func (i *Interactor) IsInitialized() bool {
	return i.catalog.IsInitialized()
}

func pluginInfos(plugins []domain.Plugin) []dto.PluginInfo {
	out := make([]dto.PluginInfo, 0, len(plugins))
	for _, p := range plugins {
		out = append(out, pluginInfo(p))
	}
	return out
}

func pluginInfo(p domain.Plugin) dto.PluginInfo {
	return dto.PluginInfo{
		Name:             p.Name,
		Version:          p.Version,
		SourceModulePath: p.SourceModulePath,
		TypeName:         p.TypeName,
	}
}
