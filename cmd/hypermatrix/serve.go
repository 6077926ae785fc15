package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hypermatrix/internal/api"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HyperMatrix HTTP API server. The server exposes scans, sibling
groups, pair comparison, merge preview/execute and the consolidation rules
over REST for the frontend.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if servePort != 0 {
		eng.cfg.Server.Port = servePort
	}
	if serveHost != "" {
		eng.cfg.Server.Host = serveHost
	}

	server := api.NewServer(eng.cfg, eng.db, eng.scans, eng.rules, eng.logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", eng.cfg.Server.Host, eng.cfg.Server.Port)
		fmt.Printf("HyperMatrix HTTP API listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			eng.logger.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
	case sig := <-shutdown:
		eng.logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			eng.logger.Error("Error during shutdown", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
	}

	return nil
}
