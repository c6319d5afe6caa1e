package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markbank/md2db/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion pipeline over MCP on stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("db-dir", "", "database directory (default: ~/.md2db)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dbDir, _ := cmd.Flags().GetString("db-dir")
	if dbDir == "" {
		dbDir = os.Getenv("MD2DB_DB_DIR")
	}

	server, err := mcp.NewServer(dbDir)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		// stdout carries the protocol; anything human-readable goes to stderr
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
