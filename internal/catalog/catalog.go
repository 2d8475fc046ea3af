// Package catalog records committed index builds in a SQL database so query
// servers can find the most recent store at startup. SQLite (pure Go,
// modernc.org/sqlite) serves single-machine use; PostgreSQL (lib/pq) serves
// shared deployments.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
)

var ErrNoBuilds = errors.New("no builds recorded")

// Build is one committed index store.
type Build struct {
	BuildID   string    `json:"build_id"`
	Location  string    `json:"location"`
	Adapter   string    `json:"adapter"`
	Source    string    `json:"source"`
	DocCount  int       `json:"doc_count"`
	TermCount int       `json:"term_count"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `CREATE TABLE IF NOT EXISTS builds (
	build_id   TEXT PRIMARY KEY,
	location   TEXT NOT NULL,
	adapter    TEXT NOT NULL,
	source     TEXT NOT NULL,
	doc_count  INTEGER NOT NULL,
	term_count INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

type Catalog struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// sqliteDSN appends the connection pragmas to dsn, which may already carry
// its own query parameters.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas
}

// Open connects to the configured database and creates the builds table
// when missing.
func Open(ctx context.Context, cfg config.CatalogConfig) (*Catalog, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = sql.Open("sqlite", sqliteDSN(cfg.DSN))
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	case "postgres":
		db, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s catalog: %w", cfg.Driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s catalog: %w", cfg.Driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating builds table: %w", err)
	}
	return &Catalog{
		db:     db,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "catalog", "driver", cfg.Driver),
	}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping reports whether the database is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Record inserts b inside a transaction.
func (c *Catalog) Record(ctx context.Context, b Build) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, c.rebind(
			`INSERT INTO builds (build_id, location, adapter, source, doc_count, term_count, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			b.BuildID, b.Location, b.Adapter, b.Source, b.DocCount, b.TermCount, b.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("recording build %s: %w", b.BuildID, err)
		}
		c.logger.Info("build recorded", "build_id", b.BuildID, "location", b.Location, "docs", b.DocCount)
		return nil
	})
}

// Latest returns the most recently created build, optionally restricted to
// one location. It fails with ErrNoBuilds when none match.
func (c *Catalog) Latest(ctx context.Context, location string) (Build, error) {
	query := `SELECT build_id, location, adapter, source, doc_count, term_count, created_at FROM builds`
	var args []any
	if location != "" {
		query += ` WHERE location = ?`
		args = append(args, location)
	}
	query += ` ORDER BY created_at DESC, build_id DESC LIMIT 1`

	builds, err := c.query(ctx, query, args...)
	if err != nil {
		return Build{}, err
	}
	if len(builds) == 0 {
		return Build{}, ErrNoBuilds
	}
	return builds[0], nil
}

// List returns up to limit builds, newest first.
func (c *Catalog) List(ctx context.Context, limit int) ([]Build, error) {
	return c.query(ctx,
		`SELECT build_id, location, adapter, source, doc_count, term_count, created_at
		 FROM builds ORDER BY created_at DESC, build_id DESC LIMIT ?`, limit)
}

func (c *Catalog) query(ctx context.Context, query string, args ...any) ([]Build, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.BuildID, &b.Location, &b.Adapter, &b.Source, &b.DocCount, &b.TermCount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}
	return builds, nil
}

func (c *Catalog) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind rewrites '?' placeholders as $1, $2, ... for PostgreSQL.
func (c *Catalog) rebind(query string) string {
	if c.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
