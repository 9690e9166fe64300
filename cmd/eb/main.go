// Command eb is the edgeboard CLI: a local trading dashboard with an
// embedded store, a browser UI, and terminal check-ins.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/edgeboard/edgeboard/internal/config"
	"github.com/edgeboard/edgeboard/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "eb",
	Short: "Personal trading dashboard",
	Long: `eb is a single-binary personal dashboard for a discretionary trader.

It keeps three records in a local embedded database: the setup list
(trade patterns with notes and reference images), the categorized rule
list, and the mental-state check-in. The dashboard is served to the
browser and refreshes live as records change.

Common usage:
  eb serve                 # start the dashboard
  eb checkin               # terminal mental-state check-in
  eb export --out b.jsonl  # back up all records
  eb watch setup-breakout  # ingest images dropped into the inbox`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (default ~/.edgeboard)")
}

// loadConfig resolves configuration with the persistent flags bound
// over file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.New()
	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		if err := v.BindPFlag("data_dir", f); err != nil {
			return config.Config{}, err
		}
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		if err := v.BindPFlag("port", f); err != nil {
			return config.Config{}, err
		}
	}
	if f := cmd.Flags().Lookup("log-file"); f != nil && f.Changed {
		if err := v.BindPFlag("log_file", f); err != nil {
			return config.Config{}, err
		}
	}

	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(v, configFile)
}

// openStore opens and loads the record store, reporting any
// default-substitution at load time.
func openStore(cfg config.Config, logger *log.Logger) (*store.Store, error) {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	report, err := st.Load()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	if report.Setups.Default() {
		logger.Printf("Setups record %s, using defaults", report.Setups)
	}
	if report.Rules.Default() {
		logger.Printf("Rules record %s, using defaults", report.Rules)
	}
	if report.Mental.Default() {
		logger.Printf("Mental-state record %s, using defaults", report.Mental)
	}

	return st, nil
}

// newLogger routes logs through lumberjack rotation when a log file is
// configured, otherwise to stderr.
func newLogger(prefix string, cfg config.Config) *log.Logger {
	if cfg.LogFile != "" {
		return log.New(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}, prefix, log.LstdFlags)
	}
	return log.New(os.Stderr, prefix, log.LstdFlags)
}
