package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edgeboard/edgeboard/internal/dashboard"
	"github.com/edgeboard/edgeboard/internal/images"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser dashboard",
	Long: `Start the dashboard server.

The server renders the setup cards, rule list, and mental-state panel
at http://localhost:<port>/ and pushes every record change to open
tabs over WebSocket, so edits from any surface (browser, CLI, drop
folder) appear everywhere immediately.

Example usage:
  eb serve                 # default port 8787
  eb serve --port 9000     # custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger("[dashboard] ", cfg)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		server := dashboard.NewServer(&dashboard.Config{
			Port:     cfg.Port,
			Store:    st,
			Pipeline: images.New(cfg.PipelineOptions()),
			Logger:   logger,
		})

		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}

		url := dashboardURL(server.GetAddr())
		fmt.Printf("Dashboard: %s\n", url)
		fmt.Printf("WebSocket: %s\n", "ws"+strings.TrimPrefix(url, "http")+"/ws")
		fmt.Println("\nPress Ctrl+C to stop...")

		if open, _ := cmd.Flags().GetBool("open"); open {
			if err := openBrowser(url); err != nil {
				logger.Printf("Failed to open browser: %v", err)
			}
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		return server.Stop()
	},
}

// dashboardURL derives the browser URL from the bound listen address,
// so a port chosen by the kernel (port 0) or the config file is the
// one printed.
func dashboardURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost" + addr
	}
	return "http://localhost:" + port
}

// openBrowser launches the platform's default browser at url.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8787, "Port to listen on")
	serveCmd.Flags().Bool("open", false, "Open the dashboard in the browser")
	serveCmd.Flags().String("log-file", "", "Log to a rotated file instead of stderr")

	rootCmd.AddCommand(serveCmd)
}
