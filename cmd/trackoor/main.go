package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/serbench/trackoor/pkg/config"
	"github.com/serbench/trackoor/pkg/tracker"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile  string
	logLevel string
	log      *logrus.Logger
)

func main() {
	log = logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal("Failed to execute command")
	}
}

var rootCmd = &cobra.Command{
	Use:   "trackoor",
	Short: "Serialization benchmark history tracker",
	Long: `Trackoor records serialization framework benchmark results into a
history database, detects performance regressions between comparable
runs, and reports per-framework trends over time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}

		log.SetLevel(level)

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("trackoor %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level ("+strings.Join(logLevels(), ", ")+")")

	rootCmd.AddCommand(versionCmd)
}

func logLevels() []string {
	levels := make([]string, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		levels = append(levels, level.String())
	}

	return levels
}

// loadConfig loads the config file when given, defaults otherwise.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}

		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// withTracker runs fn against a started tracker and always stops it.
func withTracker(
	ctx context.Context, fn func(*tracker.Tracker) error,
) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tr, err := tracker.New(log, cfg)
	if err != nil {
		return err
	}

	if err := tr.Start(ctx); err != nil {
		return fmt.Errorf("starting tracker: %w", err)
	}

	defer func() {
		if err := tr.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop tracker")
		}
	}()

	return fn(tr)
}
