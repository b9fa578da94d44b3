package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		if err := db.Migrate(cmd.Context(), sqlDB); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ">> Migration complete")
		return nil
	},
}
