package store

import (
	"context"
	"fmt"

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	logx "github.com/urbanbot/server/pkg/logger"
)

// Tables lists user tables in store order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	var q string
	switch s.dialect {
	case DialectMySQL:
		q = "SHOW TABLES"
	case DialectSQLite:
		q = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	default:
		return nil, fmt.Errorf("schema discovery not supported for %s", s.dialect)
	}
	res, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return firstColumn(res), nil
}

// Columns lists the columns of table in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	var (
		q    string
		args []any
	)
	switch s.dialect {
	case DialectMySQL:
		q = `SELECT COLUMN_NAME FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`
		args = []any{table}
	case DialectSQLite:
		q = "SELECT name FROM pragma_table_info(?) ORDER BY cid"
		args = []any{table}
	default:
		return nil, fmt.Errorf("schema discovery not supported for %s", s.dialect)
	}
	res, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return firstColumn(res), nil
}

// Introspect reads every table and its columns.
func (s *Store) Introspect(ctx context.Context) (model.SchemaDescription, error) {
	tables, err := s.Tables(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("failed to list tables")
		return model.SchemaDescription{}, errx.WrapStore(err)
	}
	desc := model.SchemaDescription{Dialect: s.dialect, Tables: make([]model.TableSchema, 0, len(tables))}
	for _, t := range tables {
		cols, err := s.Columns(ctx, t)
		if err != nil {
			logx.Error().Err(err).Str("table", t).Msg("failed to list columns")
			return model.SchemaDescription{}, errx.WrapStore(err)
		}
		desc.Tables = append(desc.Tables, model.TableSchema{Name: t, Columns: cols})
	}
	return desc, nil
}

func firstColumn(res model.QueryResult) []string {
	out := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		if len(r) == 0 {
			continue
		}
		out = append(out, fmt.Sprint(r[0]))
	}
	return out
}
