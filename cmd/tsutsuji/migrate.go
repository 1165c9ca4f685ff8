package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Mr-Leon909/tsutsuji-app/config"
	database "github.com/Mr-Leon909/tsutsuji-app/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := config.LoadDatabaseConfig("")
			if err != nil {
				return fmt.Errorf("failed to load database config: %w", err)
			}
			if err := database.Migrate(*dbCfg, args[0]); err != nil {
				return err
			}
			log.Printf("Migration %s completed", args[0])
			return nil
		},
	}
}
