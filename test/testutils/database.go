// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	persistence "github.com/tymenu/tymenu/internal/infrastructure/persistence/gorm"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/migrations"
)

// NewSQLiteDB opens a migrated in-memory database that lives until the
// test ends. A single connection keeps every query on the same memory
// database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, persistence.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Repositories bundles the gorm repositories over one database.
type Repositories struct {
	DB         *gorm.DB
	Users      *persistence.UserRepository
	Roles      *persistence.RoleRepository
	Recipes    *persistence.RecipeRepository
	Plans      *persistence.PlanRepository
	Transactor *persistence.Transactor
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		Users:      persistence.NewUserRepository(db),
		Roles:      persistence.NewRoleRepository(db),
		Recipes:    persistence.NewRecipeRepository(db),
		Plans:      persistence.NewPlanRepository(db),
		Transactor: persistence.NewTransactor(db),
	}
}

// PostgresConfig holds test database configuration
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     string
}

// DefaultPostgresConfig returns the default test database configuration
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:15-alpine",
		Database: "tymenu_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432",
	}
}

// TestPostgres is a migrated postgres container.
type TestPostgres struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// SetupPostgres starts postgres in a container, applies the migrations
// and terminates the container when the test ends.
func SetupPostgres(t *testing.T, cfg PostgresConfig) *TestPostgres {
	t.Helper()
	ctx := context.Background()

	dsnFor := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Username, cfg.Password, host, port.Port(), cfg.Database)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.Image,
			ExposedPorts: []string{cfg.Port + "/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       cfg.Database,
				"POSTGRES_USER":     cfg.Username,
				"POSTGRES_PASSWORD": cfg.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(nat.Port(cfg.Port+"/tcp"), "postgres", dsnFor),
			),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,noexec,nosuid,size=256m",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, nat.Port(cfg.Port))
	require.NoError(t, err)
	dsn := dsnFor(host, port)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create GORM connection")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	m, err := migrations.New(sqlDB, cfg.Database, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up(), "Failed to run migrations")

	return &TestPostgres{Container: container, DB: db, DSN: dsn}
}

// Truncate empties every table, children first.
func (p *TestPostgres) Truncate(t *testing.T) {
	t.Helper()
	require.NoError(t, p.DB.Exec(
		"TRUNCATE menu_plan_instances, menu_plan_items, menu_plans, recipes, users, roles CASCADE").Error)
}
