package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pulseplan/pulseplan/internal/config"
)

const (
	appName = "pulseplan"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Adaptive training recommendation engine",
		Version: version,
		Long: `PulsePlan analyzes fitness and lifestyle telemetry and produces
prioritized, personalized plan adjustments with explanations,
preemptive planning, and what-if simulation.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level (debug|info|warn|error)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newRuleSetsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for a command invocation: the
// --config file when given, defaults otherwise, with --log-level applied
// on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}

	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		cfg.LogLevel = override
	}
	applyLogLevel(cfg.LogLevel)
	return cfg, nil
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
