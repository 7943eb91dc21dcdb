package migration

import (
	"github.com/sorteops/relatorio/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Embedded migrations are written for MySQL; sqlite is only used by
		// tests, which migrate through gorm directly.
		if cfg.DBType != "mysql" {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
