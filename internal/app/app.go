// Package app assembles the push pipeline daemon: config, logging, channel
// registry, engine, history retention and the ingest API, with lifecycle
// management and config hot reload.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pushpipe/internal/channel"
	"pushpipe/internal/config"
	"pushpipe/internal/engine"
	"pushpipe/internal/eventbus"
	"pushpipe/internal/history"
	"pushpipe/internal/ingest"
	"pushpipe/internal/observability/pprof"
	logx "pushpipe/pkg/logx"
)

// StopReason records why the app is shutting down; it only affects logging.
type StopReason string

const (
	ReasonSignal StopReason = "signal"
	ReasonFatal  StopReason = "fatal"
)

type App struct {
	cfgm *config.Manager
	sup  *Supervisor

	logs *logx.Service
	log  logx.Logger

	bus     eventbus.Bus
	history *history.Store

	// sweepMu guards sweeper: applyConfig swaps it on the config.reload
	// goroutine while Stop reads it from the main goroutine.
	sweepMu sync.Mutex
	sweeper *history.Sweeper

	registry *channel.Registry
	state    *engine.ProcessState
	engine   *engine.Engine
	ingest   *ingest.Server
	pprof    *pprof.Service
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console == nil || *cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()
	store := history.NewStore()

	registry, err := channel.OpenRegistry(channel.RegistryConfig{
		Path:    cfg.Channels.Path,
		Package: cfg.Engine.Package,
	}, log.With(logx.String("comp", "channels")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open channel registry: %w", err)
	}

	sweepCfg, err := sweepFromFile(cfg.History)
	if err != nil {
		registry.Close()
		logSvc.Close()
		return nil, err
	}
	sweeper := history.NewSweeper(store, sweepCfg, log.With(logx.String("comp", "history")), bus)

	state := &engine.ProcessState{}
	eng := engine.New(engine.FromFile(cfg.Engine), engine.Deps{
		History:  store,
		Channels: registry,
		AppState: state,
		Log:      log.With(logx.String("comp", "engine")),
		Bus:      bus,
	})

	var srv *ingest.Server
	if cfg.Ingest.Enabled {
		srv = ingest.NewServer(cfg.Ingest, eng, registry, state, log.With(logx.String("comp", "ingest")))
	}

	prof := pprof.New(pprofFromFile(cfg.Pprof), log)

	return &App{
		cfgm:     cfgm,
		logs:     logSvc,
		log:      log,
		bus:      bus,
		history:  store,
		sweeper:  sweeper,
		registry: registry,
		state:    state,
		engine:   eng,
		ingest:   srv,
		pprof:    prof,
	}, nil
}

func pprofFromFile(cfg config.PprofConfig) pprof.Config {
	return pprof.Config{
		Enabled:              cfg.Enabled,
		Addr:                 cfg.Addr,
		MutexProfileFraction: cfg.MutexProfileFraction,
		BlockProfileRate:     cfg.BlockProfileRate,
	}
}

func sweepFromFile(cfg config.HistoryConfig) (history.SweepConfig, error) {
	ttl, err := config.ParseDurationOrDefault("history.retention.ttl", cfg.Retention.TTL, 24*time.Hour)
	if err != nil {
		return history.SweepConfig{}, err
	}
	interval, err := config.ParseDurationOrDefault("history.retention.interval", cfg.Retention.Interval, time.Hour)
	if err != nil {
		return history.SweepConfig{}, err
	}
	return history.SweepConfig{
		Enabled:  cfg.Retention.Enabled,
		TTL:      ttl,
		Interval: interval,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := sweepFromFile(cfg.History); err != nil {
			return err
		}
		if _, err := config.ParseDurationField("engine.image_timeout", cfg.Engine.ImageTimeout); err != nil {
			return err
		}
		return nil
	})

	cfg := a.cfgm.Get()
	if err := a.ensureChannels(a.sup.Context(), cfg); err != nil {
		return err
	}

	if err := a.sweeper.Start(); err != nil {
		return err
	}

	a.pprof.Start()

	if a.ingest != nil {
		a.sup.Go("ingest.serve", func(c context.Context) error {
			errCh := make(chan error, 1)
			go func() { errCh <- a.ingest.Start() }()
			select {
			case <-c.Done():
				shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				_ = a.ingest.Shutdown(shutCtx)
				return nil
			case err := <-errCh:
				return err
			}
		})
	}

	a.sup.Go0("events.log", func(c context.Context) {
		a.drainEvents(c)
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console == nil || *cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a.engine.Apply(engine.FromFile(cfg.Engine))

	// Retention changes need a sweeper restart; the validator already
	// checked the durations.
	sweepCfg, err := sweepFromFile(cfg.History)
	if err == nil {
		next := history.NewSweeper(a.history, sweepCfg, a.log.With(logx.String("comp", "history")), a.bus)
		a.sweepMu.Lock()
		prev := a.sweeper
		a.sweeper = next
		a.sweepMu.Unlock()
		prev.Stop()
		if err := next.Start(); err != nil {
			a.log.Warn("history sweeper restart failed", logx.Err(err))
		}
	}

	if err := a.ensureChannels(ctx, cfg); err != nil {
		a.log.Warn("declared channel sync failed", logx.Err(err))
	}

	a.pprof.Reconfigure(ctx, pprofFromFile(cfg.Pprof))

	// Ingest addr/rate changes require a restart; not worth the churn for a
	// live reload, so they apply on the next boot.
	a.log.Info("config reloaded")
}

// ensureChannels creates the default channel plus every declared channel
// that does not exist yet.
func (a *App) ensureChannels(ctx context.Context, cfg *config.Config) error {
	if err := a.registry.EnsureDefault(ctx, cfg.Engine.AppName); err != nil {
		return fmt.Errorf("ensure default channel: %w", err)
	}
	for _, spec := range cfg.Channels.Declared {
		ch, err := a.registry.CreateOrGet(ctx, channel.Spec{
			ID:               spec.ID,
			Description:      spec.Description,
			Importance:       spec.Importance,
			LightColor:       spec.LightColor,
			Visibility:       spec.Visibility,
			Badge:            spec.Badge,
			Sound:            spec.Sound,
			Vibration:        spec.Vibration,
			VibrationPattern: spec.VibrationPattern,
		})
		if err != nil {
			return fmt.Errorf("declared channel %q: %w", spec.ID, err)
		}
		a.bus.Publish(eventbus.Event{
			Type: eventbus.TypeChannelCreated,
			Data: eventbus.ChannelEvent{ID: ch.ID},
		})
	}
	return nil
}

// drainEvents mirrors pipeline events into the debug log so a single log
// stream shows every disposition and diagnostic.
func (a *App) drainEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Bound each shutdown step so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("pprof", 2*time.Second, func(c context.Context) error { a.pprof.Stop(c); return nil })
	step("sweeper", 2*time.Second, func(context.Context) error {
		a.sweepMu.Lock()
		sw := a.sweeper
		a.sweepMu.Unlock()
		sw.Stop()
		return nil
	})
	step("supervisor", 4*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("registry", time.Second, func(context.Context) error { return a.registry.Close() })

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}
