// Package dbtest opens an Executor on a throwaway schema of the PostgreSQL
// named by TEST_DB_DSN. Tests calling it are skipped when the variable is
// unset.
package dbtest

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"testing"

	"github.com/geocoder89/usuarios/internal/db"
	"github.com/geocoder89/usuarios/internal/observability"
)

const ddl = `CREATE TABLE IF NOT EXISTS usuarios (
	id     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	nombre TEXT NOT NULL,
	email  TEXT NOT NULL
)`

type noRow struct{}

// Open returns an Executor whose search_path is schema, with an empty
// usuarios table in it. Packages use distinct schemas so `go test ./...`
// can run them in parallel against one server.
func Open(t *testing.T, schema string, prom *observability.Prom) *db.Executor {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	admin := db.NewExecutor(db.Config{URL: dsn}, log, nil)
	if _, err := db.Execute[noRow](ctx, admin, `CREATE SCHEMA IF NOT EXISTS `+schema, nil, false); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("TEST_DB_DSN must be a postgres:// URL: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	e := db.NewExecutor(db.Config{URL: u.String()}, log, prom)

	if _, err := db.Execute[noRow](ctx, e, ddl, nil, false); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if _, err := db.Execute[noRow](ctx, e, `TRUNCATE usuarios RESTART IDENTITY`, nil, false); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return e
}
