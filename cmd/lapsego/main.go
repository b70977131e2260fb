package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/LapseGo/internal/buildinfo"
	"github.com/cjeanneret/LapseGo/internal/config"
	"github.com/spf13/cobra"
)

// options holds the command-line overrides shared by all subcommands.
type options struct {
	configPath string
	web        webPortFlag
	device     string
	mock       bool
	debugLevel int
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{web: webPortFlag{defaultPort: defaultWebPort}}

	root := &cobra.Command{
		Use:   "lapsego",
		Short: "Time-lapse camera trigger",
		Long: `LapseGo fires a camera through a wired remote on Raspberry Pi GPIO.
Commands (status?, start, cancel, set_count, ...) are read line by line
from a serial device or from stdin.`,
		Version:       buildinfo.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	bindFlags(root, opts)
	root.AddCommand(newTriggerCmd(opts), newVersionCmd())
	return root
}

// bindFlags registers the config overrides: persistent ones shared with
// subcommands, local ones that only make sense for the console loop.
func bindFlags(root *cobra.Command, opts *options) {
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", filepath.Join("configs", "default.yaml"), "path to config file")
	flags.BoolVar(&opts.mock, "mock", false, "use mock GPIO (overrides defaults.mock_gpio)")
	flags.IntVar(&opts.debugLevel, "debug", 0, "debug level 0-4 (overrides defaults.debug_level)")

	root.Flags().StringVarP(&opts.device, "device", "d", "", "serial device for commands (overrides serial.device; empty = stdin)")
	webFlag := root.Flags().VarPF(&opts.web, "web", "w", fmt.Sprintf("serve the status monitor; --web for port %d, --web=8980 for a custom port", defaultWebPort))
	webFlag.NoOptDefVal = fmt.Sprint(defaultWebPort)
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag explicitly set on the command
// line; untouched flags keep the config values.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mock") {
		cfg.Defaults.MockGPIO = opts.mock
	}
	if flags.Changed("debug") {
		cfg.Defaults.DebugLevel = opts.debugLevel
	}
	if flags.Changed("device") {
		cfg.Serial.Device = opts.device
	}
	if flags.Changed("web") {
		cfg.Web.Port = opts.web.port()
	}
	return cfg.Validate()
}
