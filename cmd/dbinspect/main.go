// Package main provides an inspection tool for the sync database.
//
// Usage:
//
//	DB_PATH=~/Stockroom/stockroom.db go run ./cmd/dbinspect workspaces
//	go run ./cmd/dbinspect stats <workspace>
//	go run ./cmd/dbinspect delta <workspace> --kinds item,loan --since 2024-03-01T00:00:00Z
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stockroomapp/stockroom-server/internal/config"
	"github.com/stockroomapp/stockroom-server/internal/store/sqlite"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:          "dbinspect",
	Short:        "Inspect a Stockroom sync database",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (default: from DB_PATH or DATA_DIR)")
	rootCmd.AddCommand(workspacesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(deltaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the database named by --db or the server configuration.
func openStore() (*sqlite.Store, error) {
	path := dbPath
	if path == "" {
		cfg, err := config.LoadConfig(nil)
		if err != nil {
			return nil, err
		}
		path = cfg.Database.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	return sqlite.Open(path, quietLogger())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
