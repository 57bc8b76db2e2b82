package cmd

import (
	"github.com/CyrilCartoux/watch-pros-sub002/internal/model"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/database"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.InitDB(cmd.Context(), &cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db, model.All()...); err != nil {
		return err
	}
	logger.GetLogger().Info("Database migrated")
	return nil
}
