package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-artifact-registry/internal/config"
	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/services"
)

type env struct {
	dir string
	cfg *config.Config
	reg *Registry
}

func newEnv(t *testing.T, backend string) *env {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Registry: config.RegistryConfig{
			StoragePath:  filepath.Join(dir, "models"),
			MetadataFile: filepath.Join(dir, "registry.yaml"),
			Backend:      backend,
		},
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "registry.db")},
	}
	e := &env{dir: dir, cfg: cfg}
	e.reopen(t)
	return e
}

func (e *env) reopen(t *testing.T) {
	t.Helper()
	if e.reg != nil {
		e.reg.Close()
	}
	reg, err := Open(context.Background(), e.cfg)
	require.NoError(t, err)
	e.reg = reg
	t.Cleanup(reg.Close)
}

func (e *env) source(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(e.dir, "src", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRegistry_EndToEnd(t *testing.T) {
	for _, backend := range []string{config.BackendYAML, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t, backend)
			src := e.source(t, "resnet18.pt", "weights")

			for i, acc := range []float64{0.70, 0.91, 0.85} {
				key, err := e.reg.Service.Register(ctx, services.RegisterRequest{
					Family: "resnet18", SourcePath: src,
					Metrics: domain.Metrics{"accuracy": acc},
				})
				require.NoError(t, err)
				assert.Equal(t, []string{"resnet18/v1", "resnet18/v2", "resnet18/v3"}[i], key)
			}

			_, err := e.reg.Service.Register(ctx, services.RegisterRequest{
				Family: "chest_xray", SourcePath: e.source(t, "d121.pt", "x"), Version: "baseline",
				Dataset: domain.StringPtr("NIH"),
			})
			require.NoError(t, err)

			// overwrite keeps list length
			_, err = e.reg.Service.Register(ctx, services.RegisterRequest{
				Family: "resnet18", SourcePath: src, Version: "v2",
				Metrics: domain.Metrics{"accuracy": 0.95},
			})
			require.NoError(t, err)

			e.reopen(t)
			svc := e.reg.Service

			assert.Equal(t, []string{"resnet18/v1", "resnet18/v2", "resnet18/v3", "chest_xray/baseline"}, svc.List(ctx, ""))
			assert.Equal(t, []string{"resnet18", "chest_xray"}, svc.ListFamilies(ctx))

			latest, ok := svc.Get(ctx, "resnet18", domain.SelectorLatest)
			require.True(t, ok)
			assert.Equal(t, "v3", latest.Version)

			best, ok := svc.Get(ctx, "resnet18", domain.SelectorBest)
			require.True(t, ok)
			assert.Equal(t, "v2", best.Version)

			v2, ok := svc.Get(ctx, "resnet18", "v2")
			require.True(t, ok)
			assert.Equal(t, 0.95, v2.Metrics["accuracy"])
			assert.Equal(t, "resnet18", v2.Architecture)
			assert.Equal(t, domain.DefaultFramework, v2.Framework)
			assert.Nil(t, v2.Dataset)
			assert.True(t, e.reg.Artifacts.Verify(v2.FilePath))

			cx, ok := svc.Get(ctx, "chest_xray", "")
			require.True(t, ok)
			assert.Equal(t, "NIH", *cx.Dataset)
			assert.Nil(t, cx.Description)

			_, ok = svc.Get(ctx, "unknown", domain.SelectorLatest)
			assert.False(t, ok)
			assert.NoError(t, e.reg.Ping(ctx))
		})
	}
}

func TestRegistry_MissingSourceLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, config.BackendYAML)

	_, err := e.reg.Service.Register(ctx, services.RegisterRequest{
		Family: "ghost", SourcePath: filepath.Join(e.dir, "nope.pt"),
	})
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	_, statErr := os.Stat(filepath.Join(e.cfg.Registry.StoragePath, "ghost"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(e.cfg.Registry.MetadataFile)
	assert.True(t, os.IsNotExist(statErr), "metadata is not written")
	assert.Empty(t, e.reg.Service.List(ctx, ""))
}

func TestRegistry_CorruptMetadataFailsToOpen(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(meta, []byte("m: [\n"), 0o644))

	_, err := Open(context.Background(), &config.Config{Registry: config.RegistryConfig{
		StoragePath: filepath.Join(dir, "models"), MetadataFile: meta, Backend: config.BackendYAML,
	}})
	assert.ErrorIs(t, err, domain.ErrMetadataDecode)
}

func TestRegistry_UnsupportedBackend(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), &config.Config{Registry: config.RegistryConfig{
		StoragePath: filepath.Join(dir, "models"), Backend: "s3",
	}})
	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)
}
