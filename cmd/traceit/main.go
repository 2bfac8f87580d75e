package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/singhkkrish/traceit/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "traceit",
	Short:         "TraceIt lost and found API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	pf.StringP("db", "d", "traceit.sqlite3", "SQLite database path")
	pf.StringP("log", "l", "", "log file path (default: no file, stdout/stderr only)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration for cmd and sets up logging. The
// returned cleanup closes the log file.
func loadConfig(cmd *cobra.Command) (*config.Config, func(), error) {
	cfg, err := config.Load(config.Sources{
		ConfigFile: flagConfig,
		EnvFile:    ".env",
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, nil, err
	}

	level, _ := cfg.Level()
	closeLog, err := setupLogger(cfg.Log, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
