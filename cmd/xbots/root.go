package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xbots",
	Short: "Scheduled date-fact bots for X",
	Long: "xbots posts a daily IT persona fortune, today's observances and the\n" +
		"weather for Seoul, Busan and Pyongyang, on a KST schedule.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "xbots.yaml", "Config file (missing file = defaults)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fortuneCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = c
	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format, cmd.ErrOrStderr())
	return nil
}
