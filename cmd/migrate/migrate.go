// Package migrate implements the command that runs schema migration and exits.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
)

// Command creates the migrate command. Useful for preparing a database
// before the service user is granted DDL-free credentials.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds := datastore.New(settings)
			if err := ds.Open(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if err := ds.Close(); err != nil {
				return fmt.Errorf("failed to close datastore: %w", err)
			}

			cmd.Println("Schema migration complete")
			return nil
		},
	}
}
