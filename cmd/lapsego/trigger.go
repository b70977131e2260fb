package main

import (
	"fmt"

	"github.com/cjeanneret/LapseGo/internal/debug"
	"github.com/cjeanneret/LapseGo/internal/hw/gpio"
	"github.com/spf13/cobra"
)

// newTriggerCmd fires one photo and exits, for checking the remote wiring
// without a console.
func newTriggerCmd(opts *options) *cobra.Command {
	var autofocus bool

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Fire one photo and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			debug.Init(cfg.Defaults.DebugLevel)

			g, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
			if err != nil {
				return fmt.Errorf("init GPIO: %w", err)
			}
			defer g.Close()

			cam, err := newCameraFromConfig(g, cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("af") {
				autofocus = cfg.Capture.Autofocus
			}
			if err := cam.Shoot(autofocus); err != nil {
				return fmt.Errorf("trigger: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "triggered")
			return nil
		},
	}
	cmd.Flags().BoolVar(&autofocus, "af", false, "pulse autofocus before the shutter (default: capture.autofocus)")
	return cmd
}
