package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	flag "github.com/spf13/pflag"

	"langhub.io/internal/config"
	"langhub.io/internal/migrate"
	"langhub.io/internal/obs"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to langhub.yaml (default $LANGHUB_CONFIG)")
		dsn            = flag.String("dsn", "", "PostgreSQL DSN (overrides database.dsn)")
		migrationsPath = flag.String("migrations", "", "Directory with SQL migrations (default: embedded schema)")
		seedsPath      = flag.String("seeds", "", "Directory with SQL seeds (default: embedded demo data)")
		timeout        = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	log := obs.Logger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.SetLevel(cfg.Log.Level); err != nil {
		log.WithError(err).Fatal("set log level")
	}
	if *dsn == "" {
		*dsn = cfg.Database.DSN
	}
	if *dsn == "" {
		log.Fatal("missing DSN: provide via --dsn, database.dsn or LANGHUB_PG_DSN")
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|down|seed|status")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	mgr := migrate.NewManager(db,
		pick(*migrationsPath, migrate.Migrations()),
		pick(*seedsPath, migrate.Seeds()),
		migrate.WithLogger(log),
	)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.WithError(err).Fatalf("migrate %s", flag.Arg(0))
	}
}

func pick(dir string, embedded fs.FS) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}
