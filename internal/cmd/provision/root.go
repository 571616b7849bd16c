// Package provision is the operator CLI for credential records. PIN setup
// happens out of band; the service itself has no enrollment endpoint.
package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/platewire/boardgate/internal/platform/config"
	accesssqlite "github.com/platewire/boardgate/internal/services/access/storage/sqlite"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "provision",
	Short:         "Manage executive access credential records",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the access database")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		config.Exitf("error: %v", err)
	}
}

func defaultDBPath() string {
	if path := os.Getenv("BOARDGATE_DB_PATH"); path != "" {
		return path
	}
	return filepath.Join("data", "access.db")
}

func openStore() (*accesssqlite.Store, error) {
	store, err := accesssqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open access store at %s: %w", dbPath, err)
	}
	return store, nil
}
