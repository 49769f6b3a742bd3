package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"hangartalk/internal/sweeper"
	"hangartalk/pkg/config"
	"hangartalk/pkg/directory"
	"hangartalk/pkg/ledger"
	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/store"
	"hangartalk/pkg/telemetry"
	"hangartalk/pkg/utils"
	"hangartalk/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	st  *store.Store
	led *ledger.Ledger
	dir *directory.Directory

	srv *http.Server
}

// New initializes resources that do not require a running context (store,
// validation rules, runtime keys, seed channels). It does not start the
// sweeper or the HTTP server; call Run to start those and block until
// shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// content policy
	validation.SetRules(validation.Rules{
		MaxContentBytes: int(eff.Config.Community.MaxContentBytes.Int64()),
		BannedWords:     append([]string{}, eff.Config.Community.BannedWords...),
	})

	// keep the telemetry stream next to the data files
	telemetry.SetDir(filepath.Join(eff.DBPath, "state", "telemetry"))

	// open store
	st, err := store.Open(eff.DBPath, store.Options{DeletePolicy: eff.Config.Community.DeletePolicy})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	led := ledger.New(st)
	dir := directory.New(st, led, eff.Config.Community.DefaultChannel)

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, st: st, led: led, dir: dir}
	if err := a.seedChannels(); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// Run starts the sweeper (if enabled) and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopSweep, err := sweeper.Start(ctx, a.eff, a.st, a.led)
	if err != nil {
		return err
	}
	defer stopSweep()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdownHTTP()
		a.st.Close()
		return nil
	case err := <-errCh:
		a.st.Close()
		return err
	}
}

// seedChannels creates configured channels that do not exist yet so a fresh
// deployment comes up with its community layout in place.
func (a *App) seedChannels() error {
	now := time.Now().UTC().UnixNano()
	for _, sc := range a.eff.Config.Community.SeedChannels {
		if sc.ID == "" {
			continue
		}
		if _, err := a.st.GetChannel(sc.ID); err == nil {
			continue
		}
		ch := models.Channel{
			ID:        sc.ID,
			Name:      sc.Name,
			Icon:      sc.Icon,
			Category:  sc.Category,
			Slug:      utils.MakeSlug(sc.Name, sc.ID),
			CreatedTS: now,
			UpdatedTS: now,
		}
		if err := a.st.SaveChannel(ch); err != nil {
			return fmt.Errorf("failed to seed channel %s: %w", sc.ID, err)
		}
		logger.Info("channel_seeded", "channel", sc.ID, "category", ch.Category)
	}
	return nil
}
