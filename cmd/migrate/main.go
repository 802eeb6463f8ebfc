package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samirrijal/planpresso/internal/adapters/postgres"
	"github.com/samirrijal/planpresso/internal/pkg/config"
)

const migrationsDir = "migrations"

const trackingTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("planpresso-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.Options{MaxConns: 2})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if _, err := db.Pool.Exec(ctx, trackingTable); err != nil {
		log.Fatalf("create schema_migrations: %v", err)
	}
	applied := appliedMigrations(ctx, db)

	switch os.Args[1] {
	case "up":
		migrateUp(ctx, db, applied)
	case "down":
		migrateDown(ctx, db, applied)
	case "status":
		for _, f := range upFiles() {
			state := "pending"
			if applied[filepath.Base(f)] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, f)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func appliedMigrations(ctx context.Context, db *postgres.DB) map[string]bool {
	rows, err := db.Pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Fatalf("scan schema_migrations: %v", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}
	return applied
}

func migrateUp(ctx context.Context, db *postgres.DB, applied map[string]bool) {
	files := upFiles()
	if len(files) == 0 {
		log.Fatalf("no migrations found in %s", migrationsDir)
	}
	for _, f := range files {
		name := filepath.Base(f)
		if applied[name] {
			continue
		}
		execFile(ctx, db, f)
		if _, err := db.Pool.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			log.Fatalf("record %s: %v", name, err)
		}
		fmt.Printf("OK  %s\n", f)
	}
	log.Println("all migrations applied")
}

// migrateDown reverts every applied migration, newest first.
func migrateDown(ctx context.Context, db *postgres.DB, applied map[string]bool) {
	files := upFiles()
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	for _, f := range files {
		name := filepath.Base(f)
		if !applied[name] {
			continue
		}
		down := strings.TrimSuffix(f, ".sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			log.Fatalf("no down migration for %s", name)
		}
		execFile(ctx, db, down)
		if _, err := db.Pool.Exec(ctx, `DELETE FROM schema_migrations WHERE name = $1`, name); err != nil {
			log.Fatalf("unrecord %s: %v", name, err)
		}
		fmt.Printf("OK  %s\n", down)
	}
	log.Println("all migrations reverted")
}

func upFiles() []string {
	all, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	var files []string
	for _, f := range all {
		if !strings.HasSuffix(f, ".down.sql") {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files
}

func execFile(ctx context.Context, db *postgres.DB, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", path, err)
	}
}
