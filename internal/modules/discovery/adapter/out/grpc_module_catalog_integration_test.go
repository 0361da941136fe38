package out_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	out "plugdir/internal/modules/discovery/adapter/out"
)

func TestGRPCModuleCatalogIntegrationReferencePlugin(t *testing.T) {
	binPath := buildReferencePlugin(t)
	catalog := out.NewGRPCModuleCatalog(binPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := catalog.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	plugins := catalog.List()
	if len(plugins) != 2 {
		t.Fatalf("expected two plugins, got %d: %+v", len(plugins), plugins)
	}
	echo, ok := catalog.Get("echo", "1.0.0")
	if !ok {
		t.Fatalf("expected echo plugin")
	}
	if echo.TypeName != "plugdir/plugins/reference.Echo" || echo.SourceModulePath != binPath {
		t.Fatalf("echo = %+v", echo)
	}
	if _, ok := catalog.Get("wordcount", "0.3"); !ok {
		t.Fatalf("expected wordcount lookup by short version")
	}
}

func buildReferencePlugin(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "reference-plugin")
	cmd := exec.Command("go", "build", "-o", binPath, "./plugins/reference")
	cmd.Dir = repositoryRoot(t)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build reference plugin: %v\n%s", err, string(output))
	}
	return binPath
}

func repositoryRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "../../../../../"))
}
