package in

import (
	"context"

	"plugdir/internal/modules/discovery/dto"
	discoveryin "plugdir/internal/modules/discovery/port/in"
)

type CLIHandler struct {
	usecase discoveryin.Usecase
}

func NewCLIHandler(usecase discoveryin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Initialize(ctx context.Context) (dto.ScanResult, error) {
	return h.usecase.Initialize(ctx)
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Get(ctx context.Context, name, version string) (dto.PluginInfo, error) {
	return h.usecase.Get(ctx, name, version)
}

func (h CLIHandler) Indexed(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.Indexed(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) IsInitialized() bool {
	return h.usecase.IsInitialized()
}
