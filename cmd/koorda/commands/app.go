package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/koorda/internal/bridge"
	"github.com/dyluth/koorda/internal/config"
	"github.com/dyluth/koorda/internal/dialogue"
	"github.com/dyluth/koorda/internal/resolver"
	"github.com/dyluth/koorda/internal/server"
	"github.com/dyluth/koorda/internal/skill"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// app is the fully wired skill service built from a configuration.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	location *time.Location

	client   *koordinator.Client
	store    snapshot.Store
	pinger   server.Pinger
	bridge   *bridge.Bridge
	poller   *bridge.Poller
	dialogue *dialogue.Dialogue
	skill    *skill.Service

	closeStore func() error
}

// newApp wires every component. httpClient may be nil.
func newApp(cfg *config.Config, logger zerolog.Logger, httpClient *http.Client) (*app, error) {
	a := &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    telemetry.NewMetrics(""),
		closeStore: func() error { return nil },
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.location = loc

	a.client, err = koordinator.NewClient(cfg.ClientOptions(), httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create koordinator client: %w", err)
	}

	if err := a.openStore(); err != nil {
		return nil, err
	}

	a.bridge = bridge.New(logger, a.metrics)
	a.poller = bridge.NewPoller(a.client, a.bridge, bridge.PollerConfig{
		Interval:             cfg.Bridge.PollInterval,
		AcceptedTypes:        cfg.Bridge.AcceptedTypes,
		CorrelationAttribute: cfg.Bridge.CorrelationAttribute,
	}, logger, a.metrics)

	a.dialogue, err = dialogue.New(dialogue.Config{
		Backend:                 a.client,
		Store:                   a.store,
		Namespace:               cfg.Koordinator.Namespace,
		Location:                loc,
		Phrases:                 dialogue.French,
		Resolver:                a.resolver(),
		Bridge:                  a.bridge,
		ReplyTimeout:            cfg.Bridge.ReplyTimeout,
		AwaitLaunchConfirmation: cfg.Launch.AwaitConfirmation,
		Logger:                  logger,
		Metrics:                 a.metrics,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create dialogue: %w", err)
	}

	a.skill, err = skill.New(skill.Config{
		Dialogue:             a.dialogue,
		Bridge:               a.bridge,
		Relay:                a.client,
		ReplyTimeout:         cfg.Bridge.ReplyTimeout,
		SkillID:              cfg.Skill.ID,
		Stream:               cfg.Skill.Stream,
		CorrelationAttribute: cfg.Bridge.CorrelationAttribute,
		RelayLifecycle:       cfg.Skill.RelayLifecycle,
		Logger:               logger,
		Metrics:              a.metrics,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create skill: %w", err)
	}

	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.Store.Backend {
	case config.StoreFile:
		store, err := snapshot.NewFileStore(a.cfg.Store.Dir, a.cfg.Store.TTL)
		if err != nil {
			return fmt.Errorf("failed to create file store: %w", err)
		}
		a.store = store
	default:
		opts, err := a.cfg.RedisOptions()
		if err != nil {
			return err
		}
		store, err := snapshot.NewRedisStore(opts, a.cfg.Store.Instance, a.cfg.Store.TTL)
		if err != nil {
			return fmt.Errorf("failed to create redis store: %w", err)
		}
		a.store = store
		a.pinger = store
		a.closeStore = store.Close
	}
	return nil
}

func (a *app) resolver() resolver.Resolver {
	return resolver.Resolver{PlausibilitySlack: a.cfg.Resolver.PlausibilitySlack}
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		a.logger.Warn().Err(err).Str("event", "store_close_failed").Msg("failed to close snapshot store")
	}
}

// run serves HTTP and polls the event feed until ctx is cancelled or either
// fails, then shuts the server down within the configured timeout.
func (a *app) run(ctx context.Context) error {
	srv := server.New(a.cfg.Server.Addr, a.skill, a.pinger, a.metrics, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.poller.Run(gctx)
	})
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
