package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/edgeboard/edgeboard/internal/checkin"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Record a mental-state check-in from the terminal",
	Long: `Walk through the four mental-state metrics (confidence, focus,
emotional state, energy) and persist the snapshot. Prints the
composite readiness score when done.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger("[checkin] ", cfg)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		return checkin.Run(st, os.Stdout)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current mental-state snapshot and readiness score",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger("[status] ", cfg)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		cmd.Print(checkin.Render(st.Mental()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(statusCmd)
}
