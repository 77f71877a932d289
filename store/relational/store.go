// Package relational is a normalized SQL store.Store implementation
// serving both PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite), per
// spec.md §4.6. Grounded on the teacher's twin examples/postgres and
// examples/sqlite plugins (connection pooling, schema-init idiom, sqlx
// usage, error wrapping), but replacing their one-JSONB-blob-per-resource
// schema with the normalized users/groups/users_groups/user_emails tables
// spec.md requires.
package relational

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store is a sqlx-backed store.Store implementation. The driver field
// selects the small set of backend-specific fragments (placeholder
// rebinding, JSON aggregation syntax, the filter compiler's LikeOp) that
// can't be expressed identically across Postgres and SQLite.
type Store struct {
	db     *sqlx.DB
	driver string
}

// sqlxDriverName maps our driver constant to the name sqlx needs to open
// the connection; SQLite's driver is registered as "sqlite" by
// modernc.org/sqlite, matching our own constant.
func sqlxDriverName(driver string) string {
	switch driver {
	case DriverPostgres:
		return "postgres"
	case DriverSQLite:
		return "sqlite"
	default:
		return driver
	}
}

// Open opens a connection pool for driver ("postgres" or "sqlite") at
// dsn, tunes it, pings it, and creates the schema if absent.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(sqlxDriverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("relational: open database: %w", err)
	}

	// One hour, not the teacher's three minutes: spec.md §4.6 names "one
	// hour" as the bounded idle interval connections are refreshed after.
	db.SetConnMaxLifetime(time.Hour)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: ping database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts a "?"-placeholder query into the bind syntax the
// underlying driver expects (sqlx.Rebind, same convention the teacher's
// query builder already targets).
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func (s *Store) likeOp() string {
	if s.driver == DriverSQLite {
		return "LIKE"
	}
	return "ILIKE"
}

// jsonArrayAgg returns the JSON-array-aggregation expression for this
// backend, aggregating buildExpr (a JSON object per row) within a
// correlated subquery scoped to one parent row. Used only inside such
// subqueries (never a top-level GROUP BY), so an empty child set
// naturally aggregates to SQL NULL, which COALESCE turns into an empty
// array — not a one-element array of nulls (spec.md §4.6's projection
// requirement).
func (s *Store) jsonArrayAgg(buildExpr string) string {
	if s.driver == DriverSQLite {
		return fmt.Sprintf("COALESCE(json_group_array(%s), '[]')", buildExpr)
	}
	return fmt.Sprintf("COALESCE(json_agg(%s), '[]')", buildExpr)
}

// jsonBuildObject returns a JSON-object-construction expression over the
// given alternating key/column pairs, in this backend's syntax.
func (s *Store) jsonBuildObject(pairs ...string) string {
	fn := "json_build_object"
	if s.driver == DriverSQLite {
		fn = "json_object"
	}
	return fn + "(" + joinArgs(pairs) + ")"
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
