package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	debugLevel int // -1 = use the config file
}

// newRootCmd creates the root Cobra command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "boothgo",
		Short: "BoothGo is a self-service photo booth",
		Long: `BoothGo runs a photo booth kiosk: a tap starts a countdown, three photos
are taken and laid out as a branded strip that guests can print or email.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	rootCmd.PersistentFlags().IntVar(&opts.debugLevel, "debug", -1, "override debug level (0-4)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newRenderCmd(opts))
	rootCmd.AddCommand(newStripsCmd(opts))

	return rootCmd
}

// load reads the configuration and initializes the debug system.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if o.debugLevel >= 0 {
		if o.debugLevel > 4 {
			return nil, fmt.Errorf("debug level must be between 0 and 4, got %d", o.debugLevel)
		}
		cfg.Defaults.DebugLevel = o.debugLevel
	}
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", o.configPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	return cfg, nil
}

// webPortFlag implements pflag.Value for --web: --web alone → 8080, --web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return strconv.Itoa(w.defaultPort)
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) Type() string { return "port" }

func (w *webPortFlag) port() int {
	if w.val == 0 {
		return w.defaultPort
	}
	return w.val
}
