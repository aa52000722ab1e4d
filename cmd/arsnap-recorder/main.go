package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/arsnap-go/internal/core/domain"
	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/infra/buildinfo"
	"github.com/yndnr/arsnap-go/internal/infra/confloader"
	"github.com/yndnr/arsnap-go/internal/infra/shutdown"
	"github.com/yndnr/arsnap-go/internal/recorder/config"
	"github.com/yndnr/arsnap-go/internal/recorder/control"
	"github.com/yndnr/arsnap-go/internal/recorder/httpserver"
	"github.com/yndnr/arsnap-go/internal/source"
	"github.com/yndnr/arsnap-go/internal/storage/capturestore"
	"github.com/yndnr/arsnap-go/internal/telemetry/logger"
	"github.com/yndnr/arsnap-go/internal/telemetry/metric"
)

// shutdownTimeout bounds the manifest flush and server drain on exit.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a startup failure to the process exit status. An unusable
// document root exits with 2 so supervisors can tell it from a crash.
func exitCode(err error) int {
	if domain.ClassOf(err) == domain.ClassEnvironment {
		return 2
	}
	return 1
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("arsnap-recorder %s\n", buildinfo.String())
		return nil
	}

	configPath := resolveConfigPath(*configFile)
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(config.ToLoggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := log.Slog()

	home, _ := os.UserHomeDir()
	log.Info("starting arsnap-recorder",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", configPath,
		"settings", config.Sanitize(cfg, home))

	store, err := capturestore.New(config.ToStoreConfig(cfg, slogLogger))
	if err != nil {
		return fmt.Errorf("init capture store: %w", err)
	}

	src, err := source.NewFromConfig(config.ToSourceConfig(cfg), slogLogger)
	if err != nil {
		return fmt.Errorf("init frame source: %w", err)
	}

	registry := metric.NewRegistry()
	registry.MustRegister(metric.NewCollector(store))

	samplerCfg, err := config.ToSamplerConfig(cfg, slogLogger)
	if err != nil {
		src.Close()
		return fmt.Errorf("init sampler: %w", err)
	}
	samplerCfg.Metrics = registry
	sampler := service.NewSampler(src, config.ToEncoder(cfg), store, samplerCfg)

	reload := reloader(cfg, configPath)
	handler := control.NewHandler(store, sampler,
		control.WithReload(reload),
		control.WithMetrics(registry),
		control.WithLogger(slogLogger))
	ctlServer := control.New(control.Config{SocketPath: cfg.Control.SocketPath}, handler, slogLogger)
	if err := ctlServer.Listen(); err != nil {
		src.Close()
		return fmt.Errorf("listen on control socket: %w", err)
	}

	var httpServer *httpserver.Server
	if cfg.Metrics.Addr != "" {
		router := httpserver.NewRouter(&httpserver.RouterConfig{
			Metrics: registry.Handler(),
			Status:  sampler.Status,
			Ready:   readyCheck(store, cfg.Storage.MinFreeBytes),
			Logger:  slogLogger,
		})
		httpServer = httpserver.New(cfg.Metrics.Addr, router)
		if err := httpServer.Listen(); err != nil {
			ctlServer.Shutdown(context.Background())
			src.Close()
			return fmt.Errorf("listen on metrics address: %w", err)
		}
	}

	// Hooks run in reverse order: control socket first so no new capture
	// starts, then the manifest flush, then the rest.
	shutdownHandler := shutdown.NewHandler(shutdownTimeout, shutdown.WithLogger(slogLogger))
	shutdownHandler.OnShutdown("frame source", func(ctx context.Context) error {
		return src.Close()
	})

	baseCtx := logger.WithLogger(context.Background(), log)

	if configPath != "" {
		watcher, err := watchConfig(baseCtx, configPath, reload, slogLogger)
		if err != nil {
			log.Warn("config file will not be watched", "path", configPath, "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}

	if httpServer != nil {
		shutdownHandler.OnShutdown("metrics server", httpServer.Shutdown)
	}
	shutdownHandler.OnShutdown("sampler", func(ctx context.Context) error {
		res := sampler.Stop(ctx)
		if res.Error != "" {
			return fmt.Errorf("manifest for %s not written: %s", res.Session, res.Error)
		}
		return nil
	})
	shutdownHandler.OnShutdown("control server", ctlServer.Shutdown)

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctlServer.Serve(gctx)
	})
	log.Info("control socket listening", "path", ctlServer.Addr())
	if httpServer != nil {
		g.Go(httpServer.Serve)
		log.Info("metrics server listening", "addr", httpServer.Addr())
	}
	go func() {
		<-gctx.Done()
		shutdownHandler.Trigger("server stopped")
	}()

	log.Info("recorder ready")
	shutdownErr := shutdownHandler.Wait(ctx)
	serveErr := g.Wait()
	if err := errors.Join(shutdownErr, serveErr); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("recorder stopped")
	return nil
}

// resolveConfigPath returns the file to load: the -config flag, then
// ARSNAP_CONFIG, then the per-user default when it exists. Empty means
// defaults and environment only.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("ARSNAP_CONFIG"); env != "" {
		return env
	}
	if path := config.DefaultConfigPath(); fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.RecorderConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// reloader re-reads the configuration and applies the log level. Other
// sections are fixed for the life of the process.
func reloader(current *config.RecorderConfig, configPath string) control.ReloadFunc {
	return func(ctx context.Context) error {
		next, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		log := logger.L(ctx)
		logger.SetLevel(next.Log.Level)
		if keys := restartRequired(current, next); len(keys) > 0 {
			log.Warn("changed settings take effect after restart", "sections", keys)
		}
		log.Info("configuration reloaded", "log_level", next.Log.Level)
		return nil
	}
}

// restartRequired lists the sections that differ and cannot be applied live.
func restartRequired(a, b *config.RecorderConfig) []string {
	var keys []string
	sections := []struct {
		name string
		a, b any
	}{
		{"storage", a.Storage, b.Storage},
		{"capture", a.Capture, b.Capture},
		{"source", a.Source, b.Source},
		{"control", a.Control, b.Control},
		{"metrics", a.Metrics, b.Metrics},
		{"log.format", a.Log.Format, b.Log.Format},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.a, s.b) {
			keys = append(keys, s.name)
		}
	}
	return keys
}

// readyCheck fails while the document root has less than minFree bytes.
func readyCheck(store *capturestore.Store, minFree uint64) func() error {
	return func() error {
		free, err := store.FreeBytes()
		if err != nil {
			return fmt.Errorf("query free space: %w", err)
		}
		if free < minFree {
			return fmt.Errorf("free space %d below storage.min_free_bytes %d", free, minFree)
		}
		return nil
	}
}

// watchConfig reloads whenever the config file is written.
func watchConfig(ctx context.Context, path string, reload control.ReloadFunc, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}
	w.OnChange(func(string) {
		if err := reload(ctx); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
		}
	})
	w.StartAsync()
	return w, nil
}
