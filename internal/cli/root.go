package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"actionsflow/internal/auth0"
	"actionsflow/internal/bindings"
	"actionsflow/internal/config"
	"actionsflow/internal/deploy"
)

type rootFlags struct {
	ConfigPath string
	Env        string
	DSN        string
}

var rf rootFlags

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   "actionsctl",
		Short: "Manage the Auth0 post-login action and its trigger bindings",
	}

	rootCmd.PersistentFlags().StringVar(&rf.ConfigPath, "config", "actionsflow.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&rf.Env, "env", "", "Optional env name (environments.<env> overrides)")
	rootCmd.PersistentFlags().StringVar(&rf.DSN, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (defaults to DATABASE_URL)")

	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(undeployCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(bindingsCmd())
	rootCmd.AddCommand(testConnectionCmd())

	return rootCmd.Execute()
}

func dsnOrErr() (string, error) {
	if rf.DSN == "" {
		return "", fmt.Errorf("missing --dsn (or set DATABASE_URL)")
	}
	return rf.DSN, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rf.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err = cfg.ForEnv(rf.Env)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildClient() (*auth0.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return auth0.New(cfg.ClientConfig()), cfg, nil
}

func buildDeployManager() (*deploy.Manager, error) {
	client, cfg, err := buildClient()
	if err != nil {
		return nil, err
	}
	return deploy.NewManager(client, cfg.DeployConfig()), nil
}

func buildBindingManager() (*bindings.Manager, error) {
	client, _, err := buildClient()
	if err != nil {
		return nil, err
	}
	return bindings.NewManager(client, deploy.TriggerID), nil
}
