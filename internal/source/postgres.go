package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/frame"
)

// DBTX is the subset of pgx used by the PostgreSQL source.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const listTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

// LoadPostgres reads every base table in schema, up to opts.RowLimit rows
// each. Tables are named after the table itself.
func LoadPostgres(ctx context.Context, db DBTX, schema string, opts Options) ([]*frame.Frame, error) {
	rows, err := db.Query(ctx, listTablesSQL, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	if opts.MaxTables > 0 && len(tables) > opts.MaxTables {
		tables = tables[:opts.MaxTables]
	}

	frames := make([]*frame.Frame, 0, len(tables))
	for _, table := range tables {
		f, err := loadPostgresTable(ctx, db, schema, table, opts.RowLimit)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// selectTableSQL builds a safely quoted SELECT for schema.table.
func selectTableSQL(schema, table string, limit int) string {
	q := "SELECT * FROM " + pgx.Identifier{schema, table}.Sanitize()
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}

func loadPostgresTable(ctx context.Context, db DBTX, schema, table string, limit int) (*frame.Frame, error) {
	rows, err := db.Query(ctx, selectTableSQL(schema, table, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frame.New(columns, data, map[string]string{catalog.NameAttr: table})
}
