package main

import (
	"verdict_backend/internal/config"
	"verdict_backend/internal/logger"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "verdict",
		Short:         "Request lifecycle and verdict consensus service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml (default $CONFIG_PATH or config/config.yaml)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTiersCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

// loadConfig загружает конфиг и инициализирует логгер
func (o *rootOptions) loadConfig(validate bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if validate {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.LoadUnvalidated(o.configPath)
	}
	if err != nil {
		return nil, err
	}
	config.AppConfig = cfg
	logger.Init(cfg.Server.Env)
	return cfg, nil
}
