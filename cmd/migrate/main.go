// Command migrate applies the embedded forward-only migrations to the
// relational and columnar stores.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"traceroot/internal/config"
	"traceroot/migrations"
)

func main() {
	store := flag.String("store", "all", "which store to migrate: postgres, clickhouse or all")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *store == "postgres" || *store == "all" {
		if err := apply(logger, "postgres", migrations.Postgres, "postgres", cfg.Postgres.URL); err != nil {
			logger.Error("postgres migration failed", "error", err)
			os.Exit(1)
		}
	}
	if *store == "clickhouse" || *store == "all" {
		if err := apply(logger, "clickhouse", migrations.ClickHouse, "clickhouse", clickhouseURL(cfg)); err != nil {
			logger.Error("clickhouse migration failed", "error", err)
			os.Exit(1)
		}
	}
}

func apply(logger *slog.Logger, name string, fsys embed.FS, dir, dbURL string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", name, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("open %s target: %w", name, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema already current", "store", name)
			return nil
		}
		return fmt.Errorf("apply %s migrations: %w", name, err)
	}
	logger.Info("migrations applied", "store", name)
	return nil
}

func clickhouseURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   cfg.ClickHouse.Addr(),
	}
	q := url.Values{}
	q.Set("database", cfg.ClickHouse.Database)
	q.Set("username", cfg.ClickHouse.Username)
	if cfg.ClickHouse.Password != "" {
		q.Set("password", cfg.ClickHouse.Password)
	}
	q.Set("x-multi-statement", "true")
	u.RawQuery = q.Encode()
	return u.String()
}
