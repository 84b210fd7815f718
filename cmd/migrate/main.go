package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/taskhub/api/internal/config"
	"github.com/taskhub/api/internal/db/migrations"
	"github.com/taskhub/api/internal/observability"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Applies the embedded schema. `go run ./cmd/migrate` (up is the default)
// or `go run ./cmd/migrate down` to roll back one step.
func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	dbConn, err := sql.Open("pgx", cfg.DBURL)
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		log.Error("set goose dialect", "err", err)
		os.Exit(1)
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, dbConn, ".")
	case "down":
		err = goose.DownContext(ctx, dbConn, ".")
	case "status":
		err = goose.StatusContext(ctx, dbConn, ".")
	default:
		err = fmt.Errorf("unknown command %q", command)
	}

	if err != nil {
		log.Error("migration failed", "command", command, "err", err)
		os.Exit(1)
	}

	log.Info("migrations complete", "command", command)
}
