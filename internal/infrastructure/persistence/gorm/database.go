package gorm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
)

// Open connects to the configured database and, when enabled, migrates
// the schema. Postgres replicas are registered with dbresolver for reads.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database
	gormCfg := &gorm.Config{
		Logger: newLogger(log, dbCfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	switch dbCfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	case "sqlite", "":
		db, err = gorm.Open(sqlite.Open(sqlitePath(dbCfg.Path)), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbCfg.Driver == "postgres" && len(dbCfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(dbCfg.Replicas))
		for _, dsn := range dbCfg.Replicas {
			replicas = append(replicas, postgres.Open(dsn))
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxOpenConns(dbCfg.MaxOpenConns).
			SetMaxIdleConns(dbCfg.MaxIdleConns).
			SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
		log.Info("Registered read replicas", zap.Int("count", len(replicas)))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if isMemory(dbCfg) {
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	}

	if dbCfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	log.Info("Database connected",
		zap.String("driver", dbCfg.Driver),
		zap.Int("replicas", len(dbCfg.Replicas)),
	)
	return db, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isMemory(cfg config.DatabaseConfig) bool {
	return (cfg.Driver == "sqlite" || cfg.Driver == "") && (cfg.Path == "" || strings.Contains(cfg.Path, ":memory:"))
}

func sqlitePath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

func newLogger(log *zap.Logger, level string) logger.Interface {
	var lvl logger.LogLevel
	switch strings.ToLower(level) {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	default:
		lvl = logger.Warn
	}
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
