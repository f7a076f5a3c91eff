// Package nexus wires configuration, the continuity store, snapshot
// persistence, and a generation provider into a ready chat session.
package nexus

import (
	"fmt"

	"github.com/nexusforge/nexus/internal/continuity"
	"github.com/nexusforge/nexus/internal/engine"
	"github.com/nexusforge/nexus/internal/provider"
	"github.com/nexusforge/nexus/internal/snapshot"
	"github.com/nexusforge/nexus/pkg/config"
)

// App bundles the pieces a command needs to drive a session.
type App struct {
	Config    *config.Config
	Store     *continuity.Store
	Snapshots *snapshot.Store
	Session   *engine.Session
}

// NewApp builds an App from configuration. The provider's API key comes
// from the config file or environment; a missing key surfaces as an
// authentication ProviderError from the factory.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := continuity.Open(cfg.ContinuityDir())
	if err != nil {
		return nil, fmt.Errorf("open continuity store: %w", err)
	}

	snapshots, err := snapshot.NewStore(cfg.SnapshotDir())
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	prov, err := provider.CreateProvider(cfg.Provider, map[string]any{
		"api_key": cfg.Key(cfg.Provider),
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = prov.Models()[0]
	} else if !contains(prov.Models(), model) {
		return nil, fmt.Errorf("model %q not offered by provider %q", model, cfg.Provider)
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Snapshots: snapshots,
		Session:   engine.NewSession(store, snapshots, prov, model, cfg.Temperature),
	}, nil
}

// LoadSession restores a saved session, adopting the snapshot's provider
// and model. A snapshot naming a different provider rebuilds it from the
// configured credentials; a model absent from the resulting catalog falls
// back to that provider's default tier.
func (a *App) LoadSession(name string) (*snapshot.Snapshot, error) {
	snap, err := a.Session.LoadSnapshot(name)
	if err != nil {
		return nil, err
	}

	if snap.Provider != "" && snap.Provider != a.Session.Provider.Name() {
		if err := a.SwitchProvider(snap.Provider); err != nil {
			return snap, fmt.Errorf("snapshot provider %q: %w", snap.Provider, err)
		}
	}
	if snap.Model != "" {
		if contains(a.Session.Provider.Models(), snap.Model) {
			a.Session.Model = snap.Model
		} else {
			a.Session.Model = a.Session.Provider.Models()[0]
		}
	}
	return snap, nil
}

// SwitchProvider replaces the session's provider, revalidating the current
// model against the new catalog and falling back to its default tier when
// the model does not carry over.
func (a *App) SwitchProvider(name string) error {
	prov, err := provider.CreateProvider(name, map[string]any{
		"api_key": a.Config.Key(name),
	})
	if err != nil {
		return err
	}

	a.Session.Provider = prov
	if !contains(prov.Models(), a.Session.Model) {
		a.Session.Model = prov.Models()[0]
	}
	a.Config.Provider = name
	return nil
}

// SwitchModel selects a model from the current provider's catalog.
func (a *App) SwitchModel(model string) error {
	if !contains(a.Session.Provider.Models(), model) {
		return fmt.Errorf("model %q not offered by provider %q", model, a.Session.Provider.Name())
	}
	a.Session.Model = model
	return nil
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
