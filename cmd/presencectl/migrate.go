package main

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCmd(log logrus.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DB.Timeout)
			defer cancel()
			if err := database.StatusCheck(ctx, db); err != nil {
				return fmt.Errorf("database not ready: %w", err)
			}

			if err := database.Migrate(db); err != nil {
				return err
			}

			log.Info("migrations applied")
			return nil
		},
	}
}
