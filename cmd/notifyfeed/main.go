package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reportwell/notifyfeed/internal/api"
	"github.com/reportwell/notifyfeed/internal/app"
	"github.com/reportwell/notifyfeed/internal/credential"
	"github.com/reportwell/notifyfeed/internal/logger"
	"github.com/reportwell/notifyfeed/internal/metrics"
	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/notify"
	"github.com/reportwell/notifyfeed/internal/store"
	"github.com/reportwell/notifyfeed/internal/theme"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notifyfeed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	logFile, err := openLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logg := logger.New(logger.Options{
		ServiceName: "notifyfeed",
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
		Output:      logFile,
	})
	ctx := context.Background()

	if cfg.Display.Theme == "mono" {
		theme.Plain()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	clientMetrics := metrics.NewClientMetrics(reg)
	if cfg.Metrics.ListenAddr != "" {
		srv := serveMetrics(ctx, cfg.Metrics.ListenAddr, reg, logg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logg.Error(ctx, "closing store", err)
		}
	}()

	vault, err := credential.Open(model.ConfigDir())
	if err != nil {
		return err
	}

	notifyCfg, err := notify.ConfigFrom(cfg.WS)
	if err != nil {
		return err
	}
	apiClient := api.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second)
	dialer := &notify.WebsocketDialer{HandshakeTimeout: cfg.WS.HandshakeTimeout()}
	client := notify.New(notifyCfg, dialer, apiClient,
		notify.WithLogger(logg),
		notify.WithMetrics(clientMetrics),
	)
	defer client.Disconnect()

	root := app.New(app.Deps{
		Client:     client,
		Store:      st,
		Sessions:   vault,
		Config:     cfg,
		ConfigPath: *configPath,
		Logger:     logg,
	})

	logg.Info(ctx, "starting notifyfeed")
	if _, err := tea.NewProgram(root, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logg *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return srv
}
