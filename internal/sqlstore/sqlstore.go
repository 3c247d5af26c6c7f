// Package sqlstore selects and drives the real SQL backend behind the
// "sql.query" block executor. The backend is chosen by DSN scheme so the
// same executor code serves both the embedded sandbox database and a real
// Postgres deployment.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/tursodatabase/go-libsql" // registers the "libsql" database/sql driver
)

// Result is the generic shape a query produces: either row data (for
// SELECT-like statements) or an affected-row count (for mutations).
type Result struct {
	Rows         []map[string]any
	RowCount     int
	AffectedRows int64
	IsRowResult  bool
}

// Engine executes a single query against one DSN-selected backend.
type Engine struct {
	db     *sql.DB
	driver string
}

// Open selects a driver by DSN scheme and opens a connection pool.
//
//   - "" / "sqlite:" / "file:"   -> libsql (embedded, no external server)
//   - "postgres:" / "postgresql:" -> pgx
func Open(dsn string) (*Engine, error) {
	driver, dataSource := selectDriver(dsn)

	db, err := sql.Open(driver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	return &Engine{db: db, driver: driver}, nil
}

func selectDriver(dsn string) (driver, dataSource string) {
	switch {
	case dsn == "":
		return "libsql", "file::memory:?cache=shared"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn
	case strings.HasPrefix(dsn, "sqlite:"):
		return "libsql", strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		return "libsql", dsn
	default:
		return "libsql", dsn
	}
}

// Close releases the underlying connection pool.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Query runs a single statement. SELECT-shaped statements populate Rows/
// RowCount; everything else populates AffectedRows via sql.Result.
func (e *Engine) Query(ctx context.Context, query string) (Result, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	if strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "WITH") {
		return e.queryRows(ctx, query)
	}

	exec, err := e.db.ExecContext(ctx, query)
	if err != nil {
		return Result{}, err
	}

	affected, err := exec.RowsAffected()
	if err != nil {
		affected = 0
	}

	return Result{AffectedRows: affected}, nil
}

func (e *Engine) queryRows(ctx context.Context, query string) (Result, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}

	var out []map[string]any

	for rows.Next() {
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return Result{}, err
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}

		out = append(out, record)
	}

	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	return Result{Rows: out, RowCount: len(out), IsRowResult: true}, nil
}
