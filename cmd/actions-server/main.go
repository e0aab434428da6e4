package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"actionsflow/internal/auth0"
	"actionsflow/internal/bindings"
	"actionsflow/internal/config"
	"actionsflow/internal/deploy"
	"actionsflow/internal/httpapi"
	"actionsflow/internal/settings"
)

// actions-server is the management API entrypoint consumed by the UI.
//
// Endpoints:
// - GET  /healthz
// - /api/... (deploy, bindings, settings; see internal/httpapi)
//
// Tenant settings are persisted in PostgreSQL when DATABASE_URL is provided;
// without it the settings routes are not mounted.
func main() {
	var addr, configPath, env string
	flag.StringVar(&addr, "addr", "", "listen address (default :$PORT or :8080)")
	flag.StringVar(&configPath, "config", "actionsflow.yaml", "path to YAML config file")
	flag.StringVar(&env, "env", "", "optional env name (environments.<env> overrides)")
	flag.Parse()

	if addr == "" {
		if p := os.Getenv("PORT"); p != "" {
			addr = ":" + p
		} else {
			addr = ":8080"
		}
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err == nil {
		cfg, err = cfg.ForEnv(env)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	var store *settings.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := settings.Open(ctx, dsn)
		if err != nil {
			fmt.Fprintln(os.Stderr, "db connect:", err)
			os.Exit(1)
		}
		store = s
		defer store.Close()
	}

	client := auth0.New(cfg.ClientConfig())
	deployer := deploy.NewManager(client, cfg.DeployConfig())
	binder := bindings.NewManager(client, deploy.TriggerID)

	var settingsStore httpapi.SettingsStore
	if store != nil {
		settingsStore = store
	}
	handler := httpapi.NewHandler(deployer, binder, client, settingsStore, log, cfg.Secrets())

	log.Info("listening", "addr", addr, "domain", cfg.Domain)
	if err := http.ListenAndServe(addr, httpapi.NewRouter(handler)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
