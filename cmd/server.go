package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/brk3/routines/internal/config"
	"github.com/brk3/routines/internal/logger"
	"github.com/brk3/routines/internal/server"
	"github.com/brk3/routines/internal/storage/bolt"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func startServer() error {
	logger.InitJSON(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config file: %w", err)
	}

	store, err := bolt.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("error opening db %s: %w", cfg.DBPath, err)
	}
	defer store.Close()

	s, err := server.New(cfg, store)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("Server listening", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, s.Router())
}
