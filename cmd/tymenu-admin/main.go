// Command tymenu-admin runs maintenance tasks against the configured database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/infrastructure/container"
	persistence "github.com/tymenu/tymenu/internal/infrastructure/persistence/gorm"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/migrations"
	"github.com/tymenu/tymenu/internal/infrastructure/seed"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

const usage = `Usage: tymenu-admin [-config path] <command> [flags]

Commands:
  create-db                      create or update the tables with AutoMigrate
  migrate up|down|status|force N apply the versioned PostgreSQL migrations
  insert-roles                   create or reset the builtin roles
  set-role -email E -role R      move a user to another role
  seed -users N -recipes N       generate fake users and recipes
`

// deps is what the commands pull out of the container.
type deps struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	DB      *gorm.DB
	SQL     *sql.DB
	Users   inbound.UserService
	UserRep outbound.UserRepository
	Roles   outbound.RoleRepository
	Recipes outbound.RecipeRepository
}

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, command string, args []string) error {
	var d deps
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		container.Core,
		container.ServiceModule,
		fx.Populate(&d),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	switch command {
	case "create-db":
		if err := persistence.AutoMigrate(d.DB); err != nil {
			return err
		}
		fmt.Println("Tables are up to date.")
		return nil
	case "migrate":
		return migrate(d, args)
	case "insert-roles":
		if err := d.Users.InsertRoles(ctx); err != nil {
			return err
		}
		roles, err := d.Users.ListRoles(ctx)
		if err != nil {
			return err
		}
		for _, r := range roles {
			fmt.Printf("%-15s permissions=%d default=%t\n", r.Name, r.Permissions, r.Default)
		}
		return nil
	case "set-role":
		return setRole(ctx, d, args)
	case "seed":
		return seedData(ctx, d, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func setRole(ctx context.Context, d deps, args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ExitOnError)
	email := fs.String("email", "", "Email of the user")
	role := fs.String("role", "", "Name of the new role")
	_ = fs.Parse(args)

	u, err := d.Users.SetRole(ctx, inbound.SetRoleCommand{Email: *email, Role: *role})
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s.\n", u.Email, u.Role)
	return nil
}

func seedData(ctx context.Context, d deps, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	users := fs.Int("users", 100, "Number of users to generate")
	recipes := fs.Int("recipes", 100, "Number of recipes to generate")
	randSeed := fs.Int64("seed", 0, "Random seed, 0 for a random one")
	_ = fs.Parse(args)

	s := seed.New(d.UserRep, d.Roles, d.Recipes, d.Config.Auth.BCryptCost, *randSeed, d.Logger)
	if *users > 0 {
		if _, err := s.Users(ctx, *users); err != nil {
			return err
		}
	}
	if *recipes > 0 {
		if _, err := s.Recipes(ctx, *recipes); err != nil {
			return err
		}
	}
	fmt.Printf("Generated %d users and %d recipes.\n", *users, *recipes)
	return nil
}

func migrate(d deps, args []string) error {
	if d.Config.Database.Driver != "postgres" {
		return fmt.Errorf("versioned migrations need postgres, use create-db for %q", d.Config.Database.Driver)
	}
	if len(args) == 0 {
		return fmt.Errorf("missing migrate action (up, down, status, force)")
	}

	m, err := migrations.New(d.SQL, d.Config.Database.Database, d.Logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "status":
		status, err := m.Status()
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(out))
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force needs a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}
}
