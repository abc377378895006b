package main

import (
	"os"

	"github.com/EchoPBX/idlebell/internal/bell"
	"github.com/EchoPBX/idlebell/internal/shell"
	"github.com/EchoPBX/idlebell/pkg/sdk"
	"github.com/spf13/cobra"
)

func newRingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ring",
		Short: "Feed one session.idle event to the bell hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			runner, err := shell.NewRunner(cfg.Bell.Mode, cfg.Bell.Shell, os.Stdout)
			if err != nil {
				return err
			}
			return ring(cmd, runner)
		},
	}
}

func ring(cmd *cobra.Command, runner sdk.CommandRunner) error {
	h, err := bell.New(runner)
	if err != nil {
		return err
	}
	return h.HandleEvent(cmd.Context(), sdk.Event{Type: sdk.EventSessionIdle})
}
