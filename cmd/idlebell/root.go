package main

import (
	"os"

	"github.com/EchoPBX/idlebell/internal/config"
	"github.com/EchoPBX/idlebell/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "idlebell",
		Short:         "Ring the terminal bell when an agent session goes idle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config.yaml")

	cmd.AddCommand(
		newServeCmd(opts),
		newRingCmd(opts),
		newEmitCmd(opts),
	)
	return cmd
}

func defaultConfigPath() string {
	if p := os.Getenv("IDLEBELL_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Cfg{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.JSON,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
