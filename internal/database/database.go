// Package database opens the account database shared by the SQL digest
// ledger and the TOTP seed transitioner.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/lib/pq"              // PostgreSQL
	_ "modernc.org/sqlite"             // SQLite

	"github.com/systmms/secretmgr/internal/config"
	dserrors "github.com/systmms/secretmgr/internal/errors"
)

// Dialect knows the placeholder syntax of one SQL flavor.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// driverMap maps configured names to registered database/sql drivers
var driverMap = map[string]Dialect{
	"mysql":      MySQL,
	"mariadb":    MySQL,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
}

// ParseDialect maps a configured driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	d, ok := driverMap[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
	return d, nil
}

// Placeholder returns the bind parameter for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites a query written with '?' placeholders for d.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Upsert returns the statement inserting or replacing one row keyed by its
// first column.
func (d Dialect) Upsert(table string, columns ...string) string {
	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = d.Placeholder(i + 1)
	}
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(ph, ", "))

	var updates []string
	for _, c := range columns[1:] {
		switch d {
		case MySQL:
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		default:
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	if d == MySQL {
		return base + " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}
	return base + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET ", columns[0]) + strings.Join(updates, ", ")
}

// DB is an open database together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured database and verifies it answers.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		return nil, dserrors.ConfigError{
			Field:      "database",
			Message:    "no database configured",
			Suggestion: "Add a database section with driver and dsn",
		}
	}
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, dserrors.ConfigError{
			Field:      "database.driver",
			Value:      cfg.Driver,
			Message:    err.Error(),
			Suggestion: "Use one of: mysql, postgres, sqlite",
		}
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}
