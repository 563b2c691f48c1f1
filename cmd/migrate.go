package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/perfpulse/meetsched/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var dbDSN string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			_ = godotenv.Load()
			if dbDSN == "" {
				dbDSN = os.Getenv("DATABASE_DSN")
			}
			if dbDSN == "" {
				return fmt.Errorf("a database DSN is required (--db-dsn or DATABASE_DSN)")
			}

			db, err := store.Open(dbDSN)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			if err := db.Migrate(); err != nil {
				return err
			}
			fmt.Println("schema up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbDSN, "db-dsn", "", "Postgres DSN. Can also use DATABASE_DSN env var.")
	return cmd
}
