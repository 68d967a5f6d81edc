// Package db opens the gorm handle for the configured dialect and installs
// the tracing and metrics plugins.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stackspendlabs/stackspend/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Database)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := gdb.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("install otelgorm plugin: %w", err)
	}
	if err := gdb.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          "stackspend",
		RefreshInterval: 15,
	})); err != nil {
		return nil, fmt.Errorf("install prometheus plugin: %w", err)
	}

	log.Info("database opened", zap.String("dialect", cfg.Database.Dialect))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Dialect)) {
	case "postgres", "":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", cfg.Dialect)
	}
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
// TranslateError covers sqlite and mysql; postgres surfaces the raw pg error
// on some paths, so the 23505 code is checked as well.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
