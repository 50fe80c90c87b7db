// Lumen is a desktop browser shell: an embedded content engine fronted
// by a local coordinator process that owns tabs, sessions, history,
// bookmarks and downloads.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/bridge"
	"github.com/lumenbrowser/lumen/internal/config"
	"github.com/lumenbrowser/lumen/internal/domain/downloads"
	"github.com/lumenbrowser/lumen/internal/domain/tabs"
	"github.com/lumenbrowser/lumen/internal/engine"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/server"
	"github.com/lumenbrowser/lumen/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config overlay")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			panic(err)
		}
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.New()

	// A failed disk store degrades to in-memory: the browser still
	// works, nothing survives the process.
	st, err := store.Open(cfg.DatabasePath(), log)
	if err != nil {
		log.Error("open store, falling back to in-memory", zap.Error(err))
		st, err = store.OpenInMemory(log)
		if err != nil {
			return err
		}
	}
	defer st.Close()

	eng, err := engine.NewCDP(ctx, engine.Config{
		ProfileDir:     filepath.Join(cfg.Browse.DataDir, "profile"),
		DownloadDir:    filepath.Join(cfg.Browse.DataDir, "downloads"),
		WindowSize:     cfg.Engine.WindowSize,
		ChromeBinary:   cfg.Engine.ChromeBinary,
		RemoteDebugURL: cfg.RemoteDebugURL(),
	}, log)
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())

	bus := bridge.NewBus(log).WithMetrics(metrics)
	omnibox := navigation.NewOmnibox(cfg.Browse.SearchEngine)
	manager := tabs.NewManager(eng, st, bus, log).WithMetrics(metrics).WithOmnibox(omnibox)
	tracker := downloads.NewTracker(eng, st, manager, bus,
		filepath.Join(cfg.Browse.DataDir, "downloads"), log).WithMetrics(metrics)
	stream := bridge.NewStream(bus, manager, log).WithMetrics(metrics)

	srv := server.New(cfg.Server, server.Deps{
		Tabs:      manager,
		Store:     st,
		Downloads: tracker,
		Omnibox:   omnibox,
		Stream:    stream,
		Metrics:   metrics,
		AssetRoot: cfg.Browse.AssetRoot,
	}, log)

	if err := manager.RestoreSession(ctx); err != nil {
		log.Warn("session restore incomplete", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Warn("final session save failed", zap.Error(err))
	}
	return srv.Shutdown(shutdownCtx)
}
