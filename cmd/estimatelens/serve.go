package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/estimatelens/estimatelens/internal/alerts"
	"github.com/estimatelens/estimatelens/internal/api"
	"github.com/estimatelens/estimatelens/internal/auth"
	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/config"
	"github.com/estimatelens/estimatelens/internal/extract"
	"github.com/estimatelens/estimatelens/internal/metrics"
	"github.com/estimatelens/estimatelens/internal/refresh"
	"github.com/estimatelens/estimatelens/internal/source"
	"github.com/estimatelens/estimatelens/internal/store"
	"github.com/estimatelens/estimatelens/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh scheduler, REST API, websocket stream and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.setupLogging(os.Stdout); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, opts.configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	slog.Info("estimatelens starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"default_window", cfg.Server.DefaultWindow,
		"sources", len(cfg.Sources),
		"schedule", cfg.Refresh.Schedule,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	sources, err := source.NewAll(cfg.Sources)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		slog.Warn("no sources configured, dashboards will stay empty")
	}
	ex, err := extract.New(cfg.Extract.Options())
	if err != nil {
		return err
	}

	// Source snapshots with background TTL eviction.
	st := store.New(cfg.Server.SnapshotTTL)
	go st.Run(ctx)

	svc := compute.NewService(st, compute.NewEngine(ex), cfg.Server.Window())

	alertEngine, err := alerts.New(cfg.Alerts)
	if err != nil {
		return err
	}

	hub := ws.New(svc, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	// Every refresh re-evaluates alerts against the default window and
	// pushes fresh dashboards to connected clients.
	ref := refresh.New(sources, st, refresh.Options{
		OnRefresh: func(res refresh.Result) {
			d, err := svc.Default()
			if err != nil {
				slog.Error("alert evaluation skipped", "err", err)
			} else {
				alertEngine.Evaluate(d)
			}
			hub.Notify()
		},
	})
	if err := schedule(ctx, ref, cfg.Refresh); err != nil {
		return err
	}
	defer ref.Stop()
	if cfg.Refresh.OnStart {
		go func() {
			if _, err := ref.RunOnce(ctx); err != nil {
				slog.Warn("initial refresh", "err", err)
			}
		}()
	}

	go func() {
		err := config.Watch(ctx, configPath, func(updated *config.Config) {
			reload(ctx, updated, svc, alertEngine, ref)
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	authMW := auth.APIKey(cfg.Server.Auth.Mode, cfg.Server.Auth.Header, cfg.Server.Auth.Key())
	mux := http.NewServeMux()
	mux.Handle("/api/", authMW(api.New(api.Deps{
		Service:   svc,
		Store:     st,
		Alerts:    alertEngine,
		Refresher: ref,
	})))
	mux.Handle("/ws/stream", authMW(hub))
	mux.Handle("/metrics", metrics.Handler(svc))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("estimatelens shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	alertEngine.Wait()
	return nil
}

// schedule (re)registers the cron job for rc.
func schedule(ctx context.Context, ref *refresh.Refresher, rc config.RefreshConfig) error {
	loc, err := rc.Location()
	if err != nil {
		return fmt.Errorf("refresh timezone: %w", err)
	}
	if err := ref.Start(ctx, rc.Schedule, loc); err != nil {
		return err
	}
	slog.Info("refresh scheduled", "schedule", rc.Schedule, "timezone", loc.String(), "next", ref.Next())
	return nil
}

// reload applies a changed config. Each part that fails to build keeps its
// previous value. The HTTP port and auth settings need a restart.
func reload(ctx context.Context, cfg *config.Config, svc *compute.Service, alertEngine *alerts.Engine, ref *refresh.Refresher) {
	slog.Info("config hot-reloaded", "sources", len(cfg.Sources), "rules", len(cfg.Alerts.Rules))

	if ex, err := extract.New(cfg.Extract.Options()); err != nil {
		slog.Error("reload: extractor kept", "err", err)
	} else {
		svc.SetExtractor(ex)
	}
	svc.SetDefaultWindow(cfg.Server.Window())

	if err := alertEngine.SetConfig(cfg.Alerts); err != nil {
		slog.Error("reload: alert rules kept", "err", err)
	}

	if sources, err := source.NewAll(cfg.Sources); err != nil {
		slog.Error("reload: sources kept", "err", err)
	} else {
		ref.SetSources(sources)
	}

	if err := schedule(ctx, ref, cfg.Refresh); err != nil {
		slog.Error("reload: schedule kept", "err", err)
	}
}
