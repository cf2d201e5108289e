// Command migrate manages the store schema.
//
//	migrate [-dir path] up|down|status|validate
//	migrate [-dir path] create <name>
//	migrate to <version>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/db"
	"github.com/evacurves/store-backend/pkg/db/models"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/migrate"
)

var errUsage = errors.New("usage: migrate [-dir path] up|down|status|validate|create <name>|to <version>")

func main() {
	dir := flag.String("dir", "", "migrations directory for create and validate; validate defaults to the embedded set")
	flag.Parse()
	_ = godotenv.Load()

	if err := run(flag.Args(), *dir); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string, dir string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]

	// offline commands
	switch cmd {
	case "create":
		if len(rest) != 1 {
			return errUsage
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, rest[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		var fsys fs.FS = migrate.Migrations()
		if dir != "" {
			fsys = os.DirFS(dir)
		}
		if err := migrate.Validate(fsys); err != nil {
			return err
		}
		fmt.Println("migrations are valid")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	// SQLite keeps no goose history; the models are the schema.
	if cfg.FeatureFlags.UseSQLite {
		if cmd != "up" {
			return fmt.Errorf("sqlite databases only support up")
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, logg)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		_, err = runner.Up(ctx)
	case "down":
		_, err = runner.Down(ctx)
	case "to":
		if len(rest) != 1 {
			return errUsage
		}
		target, perr := strconv.ParseInt(rest[0], 10, 64)
		if perr != nil {
			return fmt.Errorf("version %q is not YYYYMMDDHHMMSS", rest[0])
		}
		_, err = runner.To(ctx, target)
	case "status":
		err = printStatus(ctx, runner)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migration command finished")
	return nil
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	states, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
	for _, st := range states {
		applied := "pending"
		if st.Applied {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", st.Version, applied, st.Path)
	}
	return tw.Flush()
}
