package out

import (
	"context"
	"debug/buildinfo"
	"errors"
	"fmt"
	"os"

	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
	"plugdir/sdk/meta"
)

// BlobMetadataSource reads module metadata from the plugdir blob a binary
// embeds. It opens the file strictly for reading, releases the handle on
// every exit path, and never executes anything: a plain byte scan is the
// whole inspection.
type BlobMetadataSource struct{}

func NewBlobMetadataSource() discoveryout.MetadataSource {
	return &BlobMetadataSource{}
}

func (s *BlobMetadataSource) Read(ctx context.Context, path string) (domain.ModuleMetadata, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModuleMetadata{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.ModuleMetadata{}, fmt.Errorf("open module file: %w", err)
	}
	defer f.Close()

	doc, err := meta.Extract(f)
	if err != nil {
		if errors.Is(err, meta.ErrNoMetadata) || errors.Is(err, meta.ErrCorrupt) {
			return domain.ModuleMetadata{}, fmt.Errorf("%w: %v", domain.ErrNotAModule, err)
		}
		return domain.ModuleMetadata{}, fmt.Errorf("read module metadata: %w", err)
	}

	md := domain.ModuleMetadata{
		Path:   path,
		Module: doc.Module,
		Types:  Descriptors(doc.Types),
	}
	// Build info is a bonus, not a requirement: non-Go artifacts carrying
	// a valid blob are still modules.
	if bi, err := buildinfo.ReadFile(path); err == nil {
		md.GoModule = bi.Main.Path
	}
	return md, nil
}

// Descriptors converts SDK metadata types into domain descriptors.
func Descriptors(types []meta.Type) []domain.TypeDescriptor {
	out := make([]domain.TypeDescriptor, 0, len(types))
	for _, t := range types {
		d := domain.TypeDescriptor{
			Name:       t.Name,
			Kind:       t.Kind,
			Extends:    t.Extends,
			Implements: t.Implements,
			Markers:    t.Markers,
		}
		if t.Plugin != nil {
			d.PluginName = t.Plugin.Name
			d.PluginVer = t.Plugin.Version
		}
		out = append(out, d)
	}
	return out
}
