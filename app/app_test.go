package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/rxintake/configx"
	"github.com/Abraxas-365/rxintake/errx"
	"github.com/Abraxas-365/rxintake/eventx"
	"github.com/Abraxas-365/rxintake/persist/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir()+"/missing.env", map[string]any{
		"auth.jwt_secret": "secret",
		"database.driver": "memory",
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "openai", cfg.Extraction.Provider)
	assert.Equal(t, 8192, cfg.Extraction.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Extraction.Timeout)
	assert.Equal(t, 3, cfg.MergeAttempts)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "none", cfg.Events.Driver)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RX_AUTH_JWT_SECRET", "from-env")
	t.Setenv("RX_DATABASE_DRIVER", "memory")
	t.Setenv("RX_EXTRACTION_TIMEOUT", "5s")
	t.Setenv("RX_PERSISTENCE_ATOMIC_MEDICINES", "true")

	cfg, err := LoadConfig(t.TempDir()+"/missing.env", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 5*time.Second, cfg.Extraction.Timeout)
	assert.True(t, cfg.AtomicMedicines)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]any{
		"missing secret":       {"database.driver": "memory"},
		"unknown storage":      {"auth.jwt_secret": "s", "database.driver": "memory", "storage.driver": "ftp"},
		"s3 without bucket":    {"auth.jwt_secret": "s", "database.driver": "memory", "storage.driver": "s3"},
		"postgres without dsn": {"auth.jwt_secret": "s"},
		"sqs without queue":    {"auth.jwt_secret": "s", "database.driver": "memory", "events.driver": "sqs"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(t.TempDir()+"/missing.env", overrides)
			require.Error(t, err)
			assert.Contains(t, string(errx.CodeOf(err)), "CONFIG_")
		})
	}
}

func TestNewWiresMemoryBackends(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir()+"/missing.env", map[string]any{
		"auth.jwt_secret":    "secret",
		"database.driver":    "memory",
		"events.driver":      "memory",
		"storage.local_dir":  t.TempDir(),
		"extraction.api_key": "test-key",
	})
	require.NoError(t, err)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.IsType(t, &memstore.Store{}, a.Store)

	resp, err := a.Server.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	tok, err := a.Tokens.GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = a.Server.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
}

func TestOpenBus(t *testing.T) {
	bus, err := OpenBus(context.Background(), EventsConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Equal(t, eventx.NopBus{}, bus)

	bus, err = OpenBus(context.Background(), EventsConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &eventx.MemoryBus{}, bus)

	_, err = OpenBus(context.Background(), EventsConfig{Driver: "kafka"})
	assert.True(t, errx.IsCode(err, configx.CodeInvalid))
}

func TestUnknownDriversAreConfigErrors(t *testing.T) {
	ctx := context.Background()

	_, err := OpenObjectStore(ctx, StorageConfig{Driver: "ftp"})
	assert.True(t, errx.IsCode(err, configx.CodeInvalid))
	_, err = NewProvider(ExtractionConfig{Provider: "gemini"})
	assert.True(t, errx.IsCode(err, configx.CodeInvalid))
	_, err = OpenStore(ctx, DatabaseConfig{Driver: "sqlite"})
	assert.True(t, errx.IsCode(err, configx.CodeInvalid))

	var xerr *errx.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "sqlite", xerr.Details["database.driver"])
}

func TestMigrateMemoryHasNoSchema(t *testing.T) {
	err := Migrate(context.Background(), DatabaseConfig{Driver: "memory"})
	assert.True(t, errx.IsCode(err, configx.CodeInvalid))
}

func TestCloseDrainsHTTPBeforeBackends(t *testing.T) {
	var draining atomic.Bool
	var closedEarly []string
	var mu sync.Mutex
	backend := func(name string) closer {
		return closer{name, func(context.Context) error {
			if draining.Load() {
				mu.Lock()
				closedEarly = append(closedEarly, name)
				mu.Unlock()
			}
			return nil
		}}
	}

	a := &App{
		frontends: []closer{{"http", func(context.Context) error {
			draining.Store(true)
			time.Sleep(50 * time.Millisecond)
			draining.Store(false)
			return nil
		}}},
		backends: []closer{backend("database"), backend("events")},
	}

	require.NoError(t, a.Close(context.Background()))
	assert.Empty(t, closedEarly)
}

func TestCloseJoinsErrors(t *testing.T) {
	a := &App{
		frontends: []closer{{"http", func(context.Context) error { return errors.New("stuck") }}},
		backends:  []closer{{"database", func(context.Context) error { return errors.New("gone") }}},
	}

	err := a.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close http: stuck")
	assert.Contains(t, err.Error(), "close database: gone")
}
