package nexus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusforge/nexus/internal/continuity"
	"github.com/nexusforge/nexus/internal/engine"
	"github.com/nexusforge/nexus/internal/provider"
	"github.com/nexusforge/nexus/internal/snapshot"
	"github.com/nexusforge/nexus/pkg/config"
)

func registerMockFactory(name string) {
	provider.RegisterFactory(name, func(cfg map[string]any) (provider.Provider, error) {
		return provider.NewMockProvider(name), nil
	})
}

func newTestApp(t *testing.T, prov provider.Provider) *App {
	t.Helper()

	store, err := continuity.Open(t.TempDir())
	require.NoError(t, err)

	snaps, err := snapshot.NewStore(t.TempDir())
	require.NoError(t, err)

	return &App{
		Config:    &config.Config{Provider: prov.Name()},
		Store:     store,
		Snapshots: snaps,
		Session:   engine.NewSession(store, snaps, prov, "mock-large", 1.0),
	}
}

func TestLoadSessionAdoptsSnapshotProvider(t *testing.T) {
	registerMockFactory("mock-a")
	registerMockFactory("mock-b")

	app := newTestApp(t, provider.NewMockProvider("mock-a"))
	name, err := app.Snapshots.Save(&snapshot.Snapshot{
		Provider: "mock-b",
		Model:    "mock-small",
	}, "session_20250101_000000")
	require.NoError(t, err)

	_, err = app.LoadSession(name)
	require.NoError(t, err)
	assert.Equal(t, "mock-b", app.Session.Provider.Name())
	assert.Equal(t, "mock-small", app.Session.Model)
	assert.Equal(t, "mock-b", app.Config.Provider)
}

func TestLoadSessionFallsBackOnUnknownModel(t *testing.T) {
	registerMockFactory("mock-a")

	app := newTestApp(t, provider.NewMockProvider("mock-a"))
	name, err := app.Snapshots.Save(&snapshot.Snapshot{
		Provider: "mock-a",
		Model:    "mock-retired",
	}, "session_20250101_000001")
	require.NoError(t, err)

	_, err = app.LoadSession(name)
	require.NoError(t, err)
	assert.Equal(t, "mock-a", app.Session.Provider.Name())
	assert.Equal(t, "mock-large", app.Session.Model, "unknown model falls back to the default tier")
}

func TestLoadSessionUnknownProviderSurfacesError(t *testing.T) {
	registerMockFactory("mock-a")

	app := newTestApp(t, provider.NewMockProvider("mock-a"))
	name, err := app.Snapshots.Save(&snapshot.Snapshot{
		Provider: "mock-vanished",
	}, "session_20250101_000002")
	require.NoError(t, err)

	_, err = app.LoadSession(name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `snapshot provider "mock-vanished"`)
}

func TestNewAppMissingKeyIsAuthError(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := &config.Config{Provider: "anthropic", DataDir: t.TempDir()}

	// Validation no longer rejects keyless configs; the factory reports
	// the missing credential so the caller can prompt for one.
	_, err := NewApp(cfg)
	require.Error(t, err)
	assert.True(t, provider.IsAuthError(err))
}

func TestSwitchProviderRevalidatesModel(t *testing.T) {
	registerMockFactory("mock-b")

	app := newTestApp(t, provider.NewMockProvider("mock-a"))
	app.Session.Model = "claude-sonnet"

	require.NoError(t, app.SwitchProvider("mock-b"))
	assert.Equal(t, "mock-b", app.Session.Provider.Name())
	assert.Equal(t, "mock-large", app.Session.Model)
	assert.Equal(t, "mock-b", app.Config.Provider)
}
