package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgeboard/edgeboard/internal/daemon"
	"github.com/edgeboard/edgeboard/internal/images"
)

var watchCmd = &cobra.Command{
	Use:   "watch SETUP_ID",
	Short: "Ingest images dropped into the inbox for a setup",
	Long: `Watch <data-dir>/inbox/SETUP_ID and run any image file placed there
through the ingestion pipeline: validate, downscale to the bounding
box, re-encode, and append to the setup's image list. Ingested files
are removed from the inbox; rejected files are left in place and
logged.

Example usage:
  eb watch setup-breakout
  cp chart.png ~/.edgeboard/inbox/setup-breakout/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupID := args[0]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger("[watch] ", cfg)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		dcfg := daemon.DefaultConfig()
		dcfg.Logger = logger

		d, err := daemon.New(st, images.New(cfg.PipelineOptions()), setupID, cfg.InboxDir(setupID), dcfg)
		if err != nil {
			return err
		}

		if err := d.Start(); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}

		fmt.Printf("Watching %s\n", cfg.InboxDir(setupID))
		fmt.Println("Press Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nStopping...")
		return d.Stop()
	},
}

func init() {
	watchCmd.Flags().String("log-file", "", "Log to a rotated file instead of stderr")

	rootCmd.AddCommand(watchCmd)
}
