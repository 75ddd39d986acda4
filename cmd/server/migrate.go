package main

import (
	"github.com/spf13/cobra"
	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/database"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			logger.SetLevel(cfg.LogLevel)

			db, err := database.Connect(cfg.DBUrl)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db, models...)
		},
	}
}
