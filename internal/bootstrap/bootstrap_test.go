package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cloverkingdom/academy/internal/app/grimoire"
	"github.com/cloverkingdom/academy/internal/config"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

func TestBuildCatalog(t *testing.T) {
	cfg := &config.Config{}
	catalog, err := BuildCatalog(cfg)
	require.NoError(t, err)
	require.Equal(t, 5, catalog.Len())
	require.Equal(t, 12, catalog.TotalWeight())

	cfg.Grimoire.Catalog = []grimoire.Entry{{Type: "Anti-Magic", Rarity: 4}}
	catalog, err = BuildCatalog(cfg)
	require.NoError(t, err)
	require.Equal(t, 1, catalog.Len())

	cfg.Grimoire.Catalog = []grimoire.Entry{{Type: "Anti-Magic", Rarity: 0}}
	_, err = BuildCatalog(cfg)
	require.ErrorIs(t, err, apperrors.ErrInvalidCatalog)
}

func TestSetupStoreSelectsDriver(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverMemory
	store, err := SetupStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, store.Repo)
	store.Close()

	cfg.Database.Driver = "SQLite"
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "nested", "academy.db")
	store, err = SetupStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	list, err := store.Repo.ListRequests(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	store.Close()

	cfg.Database.Driver = "mongo"
	_, err = SetupStore(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestWiredRouterServesDemoData(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Database.Driver = config.DriverMemory
	cfg.Grimoire.Seed = 7
	cfg.Seed.Demo = true

	store, err := SetupStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	deps, err := BuildDependencies(cfg, store.Repo, zerolog.Nop())
	require.NoError(t, err)
	SeedData(ctx, cfg, deps)

	list, err := deps.AdmissionService.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	router := SetupRouter(cfg, deps, zerolog.Nop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ABC123")
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnv, "/etc/academy/config.yaml")
	require.Equal(t, "/etc/academy/config.yaml", ConfigPath())

	t.Setenv(ConfigPathEnv, "")
	require.Equal(t, filepath.Join("configs", "config.yaml"), ConfigPath())
}
