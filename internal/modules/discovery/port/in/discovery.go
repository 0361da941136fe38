package in

import (
	"context"

	"plugdir/internal/modules/discovery/dto"
)

type Usecase interface {
	Initialize(ctx context.Context) (dto.ScanResult, error)
	List(ctx context.Context) ([]dto.PluginInfo, error)
	Get(ctx context.Context, name, version string) (dto.PluginInfo, error)
	Indexed(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	IsInitialized() bool
}
