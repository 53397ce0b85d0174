package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"pokerbank/internal/config"
	"pokerbank/internal/db"
	"pokerbank/internal/logger"
)

const defaultDir = "migrations"

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|redo|reset")
	dir := flag.String("dir", defaultDir, "goose migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.AppEnv,
		"cmd": *cmd,
		"dir": *dir,
	})

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	requireResource(ctx, logg, "database", err)
	defer database.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		logg.Error(ctx, "set goose dialect", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate ready")
	// goose prints its own status output to stdout.
	if err := goose.RunContext(ctx, *cmd, database.DB, *dir, flag.Args()...); err != nil {
		fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
