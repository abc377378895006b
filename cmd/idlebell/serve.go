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

	"github.com/EchoPBX/idlebell/internal/bell"
	"github.com/EchoPBX/idlebell/internal/config"
	"github.com/EchoPBX/idlebell/internal/events"
	"github.com/EchoPBX/idlebell/internal/httpserver"
	"github.com/EchoPBX/idlebell/internal/plugins"
	"github.com/EchoPBX/idlebell/internal/reloader"
	"github.com/EchoPBX/idlebell/internal/shell"
	"github.com/EchoPBX/idlebell/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// builtinPlugins are the plugins compiled into the binary.
var builtinPlugins = map[string]plugins.Factory{
	bell.Name: bell.NewPlugin,
}

// defaultEntries is used when no plugins.json exists.
var defaultEntries = []plugins.PluginEntry{
	{Name: bell.Name, Version: httpserver.Version, Builtin: bell.Name},
}

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the event gateway and its plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root.configPath, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfgPath string, cfg *config.Config, logger *zap.Logger) error {
	runner, err := shell.NewRunner(cfg.Bell.Mode, cfg.Bell.Shell, os.Stdout)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	pluginMgr := plugins.NewManager(logger, bus, runner, plugins.Options{
		Builtins:       builtinPlugins,
		HandlerTimeout: cfg.Plugins.HandlerTimeout,
	})
	if err := pluginMgr.LoadManifest(cfg.Plugins.Manifest); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("plugins: %w", err)
		}
		logger.Info("no plugin manifest, loading builtins", zap.String("manifest", cfg.Plugins.Manifest))
		pluginMgr.LoadEntries(defaultEntries)
	}

	srv, err := httpserver.New(cfg, logger, bus, pluginMgr)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	src := source.NewClient(cfg, logger, bus)

	// Hot reload con SIGHUP
	reloader.OnSIGHUP(ctx, func() {
		newCfg, err := config.Load(cfgPath)
		if err != nil {
			logger.Warn("config reload failed", zap.Error(err))
			return
		}
		src.Reload(newCfg)
		if err := srv.Reload(newCfg); err != nil {
			logger.Warn("http reload failed", zap.Error(err))
		}
		_ = pluginMgr.Reload(newCfg.Plugins.Manifest)
		logger.Info("reloaded config and plugins")
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		src.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpSrv.Addr), zap.Bool("tls", cfg.HTTP.TLS.Enabled))
		var err error
		if cfg.HTTP.TLS.Enabled {
			err = httpSrv.ListenAndServeTLS(cfg.HTTP.TLS.Cert, cfg.HTTP.TLS.Key)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		src.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if stopErr := pluginMgr.Shutdown(); stopErr != nil {
		logger.Warn("plugin shutdown", zap.Error(stopErr))
	}
	logger.Info("bye")
	return err
}
