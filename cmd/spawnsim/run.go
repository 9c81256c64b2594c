package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/config"
	"github.com/l1jgo/spawnpool/internal/core/event"
	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/data"
	"github.com/l1jgo/spawnpool/internal/level"
	"github.com/l1jgo/spawnpool/internal/metrics"
	"github.com/l1jgo/spawnpool/internal/persist"
	"github.com/l1jgo/spawnpool/internal/scripting"
	"github.com/l1jgo/spawnpool/internal/system"
)

const cullEveryTicks = 5

type runOptions struct {
	configPath string
	ticks      int
	fresh      bool
	noSave     bool
}

// assets is everything loaded from disk before a level can be built.
type assets struct {
	cfg     *config.Config
	protos  *data.PrototypeTable
	defs    []data.SpawnerDef
	scripts *scripting.Engine
}

func loadAssets(cfgPath string, newLog func(*config.Config) (*zap.Logger, error)) (*assets, *zap.Logger, error) {
	cfg, err := config.Load(config.ResolvePath(cfgPath))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLog(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	printBanner(cfg.Server.Name, cfg.Server.ID)
	printSection("Data")

	protos, err := data.LoadPrototypeTable(cfg.Data.Prototypes)
	if err != nil {
		return nil, logger, fmt.Errorf("load prototypes: %w", err)
	}
	printStat("prototypes", protos.Count())

	defs, err := data.LoadSpawnerList(cfg.Data.Spawners)
	if err != nil {
		return nil, logger, fmt.Errorf("load spawners: %w", err)
	}
	printStat("spawner definitions", len(defs))

	scripts, err := scripting.NewEngine(cfg.Data.Scripts, logger)
	if err != nil {
		return nil, logger, fmt.Errorf("load scripts: %w", err)
	}
	printStat("lua scripts", len(scripts.Scripts()))
	printStat("lua functions", len(scripts.Functions()))

	return &assets{cfg: cfg, protos: protos, defs: defs, scripts: scripts}, logger, nil
}

func levelOptions(cfg *config.Config) level.Options {
	seed := cfg.Server.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return level.Options{
		Name:            cfg.Store.Level,
		Pool:            cfg.Pool,
		World:           cfg.World,
		SpawningMaxTime: cfg.Simulation.SpawningMaxTime,
		ScorePerKill:    cfg.Simulation.ScorePerKill,
		Seed:            seed,
	}
}

func run(opts runOptions) error {
	a, log, err := loadAssets(opts.configPath, func(cfg *config.Config) (*zap.Logger, error) {
		return newLogger(cfg.Logging)
	})
	if log != nil {
		defer func() { _ = log.Sync() }()
	}
	if err != nil {
		return err
	}
	defer a.scripts.Close()
	cfg := a.cfg

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)

	// Store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := persist.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if store != nil {
		defer store.Close()
		printOK(fmt.Sprintf("store connected (%s)", cfg.Store.Driver))
		if opts.fresh {
			if err := store.DeleteLevel(ctx, cfg.Store.Level); err != nil {
				return fmt.Errorf("discard saved state: %w", err)
			}
			printOK("saved state discarded")
		}
	}

	// Level
	printSection("Level")
	lvl := level.New(levelOptions(cfg), level.Deps{
		Prototypes:   a.protos,
		Scripts:      a.scripts,
		PoolObserver: collector,
		WaveObserver: collector,
		Log:          log,
	})
	if err := lvl.Load(a.defs); err != nil {
		if !lvl.Loaded() {
			return fmt.Errorf("load level: %w", err)
		}
		log.Warn("level loaded with errors", zap.Error(err))
	}
	if store != nil {
		n, err := lvl.Restore(ctx, store)
		if err != nil {
			return fmt.Errorf("restore level: %w", err)
		}
		printStat("restored spawners", n)
	}
	printStat("pools", lvl.Registry().Len())
	printStat("spawners", lvl.Directory().Len())

	event.Subscribe(lvl.Bus(), func(e event.SpawnerRetired) {
		log.Info("spawner retired", zap.Int64("spawner", e.SpawnerID), zap.String("reason", e.Reason))
	})
	event.Subscribe(lvl.Bus(), func(e event.FlockEaten) {
		log.Debug("flock eaten", zap.Int64("spawner", e.SpawnerID), zap.Int("score", e.Score))
	})

	// Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewCameraSystem(lvl, cfg.Simulation.CameraSpeed))
	runner.Register(system.NewEventDispatchSystem(lvl.Bus()))
	runner.Register(system.NewLevelClockSystem(lvl.Clock()))
	runner.Register(system.NewHuntSystem(lvl, cfg.Simulation.KillChance))
	runner.Register(system.NewCullSystem(lvl, cullEveryTicks))
	runner.Register(system.NewBudgetSystem(lvl.Budget(), collector))
	runner.Register(system.NewSpawnerSystem(lvl.Directory(), cfg.Simulation.DirectoryInterval))
	runner.Register(system.NewMetricsSystem(lvl.Directory(), collector))
	var persistSys *system.PersistenceSystem
	if store != nil {
		persistSys = system.NewPersistenceSystem(lvl, store, log, cfg.Simulation.SaveIntervalTicks)
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(lvl.World()))
	printStat("systems", runner.Len())

	// Metrics endpoint
	var srv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: cfg.Metrics.BindAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		printOK("metrics on http://" + cfg.Metrics.BindAddress + "/metrics")
	}

	fmt.Println()
	printReady(fmt.Sprintf("simulating level %q every %s", cfg.Store.Level, cfg.Simulation.TickRate))
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	ticks := 0
loop:
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(cfg.Simulation.TickRate)
			collector.ObserveTick(time.Since(start))
			ticks++
			if opts.ticks > 0 && ticks >= opts.ticks {
				break loop
			}
		case sig := <-sigCh:
			log.Info("received signal, shutting down", zap.String("signal", sig.String()))
			break loop
		}
	}

	// Shutdown
	if persistSys != nil && !opts.noSave {
		if err := persistSys.SaveNow(); err != nil {
			log.Error("final save failed", zap.Error(err))
		}
	}
	log.Info("simulation stopped",
		zap.Int("ticks", ticks),
		zap.Float64("elapsed", lvl.Clock().Elapsed()),
		zap.Float64("score", lvl.Clock().Score()),
	)
	lvl.Teardown()

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}
