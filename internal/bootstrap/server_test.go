package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-artifact-registry/internal/adapters/secondary/yamlstore"
	"model-artifact-registry/internal/config"
	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/services"
)

func TestNewRouter_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newEnv(t, config.BackendSQLite)

	w := httptest.NewRecorder()
	NewRouter(e.reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWatchMetadata_ReloadsOnExternalEdit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newEnv(t, config.BackendYAML)
	e.cfg.Watch = config.WatchConfig{Enabled: true, Debounce: 20 * time.Millisecond}
	stop, err := WatchMetadata(ctx, e.cfg, e.reg)
	require.NoError(t, err)
	defer stop()

	// Another writer replaces the file behind the service's back.
	edited := domain.NewCatalog()
	edited.Upsert(&domain.VersionRecord{Name: "external", Version: "v1", Metrics: domain.Metrics{}})
	require.NoError(t, yamlstore.New(e.cfg.Registry.MetadataFile).Save(ctx, edited))

	assert.Eventually(t, func() bool {
		return len(e.reg.Service.List(ctx, "external")) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchMetadata_CorruptEditKeepsCatalog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := newEnv(t, config.BackendYAML)
	_, err := e.reg.Service.Register(ctx, services.RegisterRequest{
		Family: "m", SourcePath: e.source(t, "m.pt", "x"),
	})
	require.NoError(t, err)

	e.cfg.Watch = config.WatchConfig{Enabled: true, Debounce: 20 * time.Millisecond}
	stop, err := WatchMetadata(ctx, e.cfg, e.reg)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(e.cfg.Registry.MetadataFile, []byte("m: [\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"m/v1"}, e.reg.Service.List(ctx, ""))
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { InitLogger(config.LoggerConfig{Level: "info"}) })

	InitLogger(config.LoggerConfig{Level: "debug", Format: "json"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	InitLogger(config.LoggerConfig{Level: "nonsense"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
