// Package store is the relational event log: schema introspection, guarded
// read queries and the incident inserts.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // sqlite

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/sqlguard"
	logx "github.com/urbanbot/server/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps a *sql.DB for one dialect.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open connects using cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, errx.WrapStore(fmt.Errorf("open database: %w", err))
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.connMaxLifetime())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errx.WrapStore(fmt.Errorf("ping database: %w", err))
	}
	return New(db, cfg.Driver), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return errx.WrapStore(s.db.PingContext(ctx))
}

// Migrate creates the event-log tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ddl, err := migrations.ReadFile("migrations/" + s.dialect + ".sql")
	if err != nil {
		return fmt.Errorf("no migrations for dialect %q: %w", s.dialect, err)
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			logx.Error().Err(err).Str("dialect", s.dialect).Msg("migration statement failed")
			return errx.WrapStore(fmt.Errorf("migrate: %w", err))
		}
	}
	return nil
}

// Query executes a guarded read-only query.
func (s *Store) Query(ctx context.Context, q sqlguard.SafeQuery) (model.QueryResult, error) {
	if !q.Valid() {
		return model.QueryResult{}, errx.Unsafe("query did not pass the sql guard")
	}
	start := time.Now()
	res, err := s.query(ctx, q.String())
	if err != nil {
		logx.Error().Err(err).Str("sql", q.String()).Msg("query failed")
		return model.QueryResult{}, err
	}
	logx.Debug().
		Str("sql", q.String()).
		Int("rows", len(res.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("query executed")
	return res, nil
}

// QueryScalar runs q and returns the first column of the first row as int64.
func (s *Store) QueryScalar(ctx context.Context, q sqlguard.SafeQuery) (int64, error) {
	res, err := s.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0][0])
}

func (s *Store) query(ctx context.Context, text string, args ...any) (model.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, text, args...)
	if err != nil {
		return model.QueryResult{}, errx.WrapStore(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return model.QueryResult{}, errx.WrapStore(err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return model.QueryResult{}, errx.WrapStore(err)
	}

	out := model.QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.QueryResult{}, errx.WrapStore(err)
		}
		for i := range values {
			values[i] = normalize(values[i], types[i].DatabaseTypeName())
		}
		out.Rows = append(out.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return model.QueryResult{}, errx.WrapStore(err)
	}
	return out, nil
}

// normalize turns driver text values into typed ones. DECIMAL columns become
// decimal.Decimal so fixed-point values are not silently truncated.
func normalize(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		if s, isStr := v.(string); isStr && isDecimalType(dbType) {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
		return v
	}
	s := string(b)
	switch t := strings.ToUpper(dbType); {
	case isDecimalType(t):
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	case strings.Contains(t, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case t == "FLOAT" || t == "DOUBLE" || t == "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func isDecimalType(t string) bool {
	t = strings.ToUpper(t)
	return t == "DECIMAL" || t == "NUMERIC" || t == "NEWDECIMAL"
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case decimal.Decimal:
		return n.IntPart(), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected scalar type %T", v)
}
