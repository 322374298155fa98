package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/frameview/internal/catalog"
	"github.com/JonMunkholm/frameview/internal/frame"
)

const listMySQLTablesSQL = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`

// OpenMySQL opens a connection pool for dsn. Columns of DATE/DATETIME type
// are scanned as time.Time.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// MySQLDatabase returns the database name selected by dsn.
func MySQLDatabase(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return ""
	}
	return cfg.DBName
}

// LoadMySQL reads every base table of the connection's current database.
func LoadMySQL(ctx context.Context, db *sql.DB, opts Options) ([]*frame.Frame, error) {
	rows, err := db.QueryContext(ctx, listMySQLTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	if opts.MaxTables > 0 && len(tables) > opts.MaxTables {
		tables = tables[:opts.MaxTables]
	}

	frames := make([]*frame.Frame, 0, len(tables))
	for _, table := range tables {
		f, err := loadMySQLTable(ctx, db, table, opts.RowLimit)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// quoteMySQLIdent backtick-quotes an identifier, doubling embedded backticks.
func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func selectMySQLTableSQL(table string, limit int) string {
	q := "SELECT * FROM " + quoteMySQLIdent(table)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}

func loadMySQLTable(ctx context.Context, db *sql.DB, table string, limit int) (*frame.Frame, error) {
	rows, err := db.QueryContext(ctx, selectMySQLTableSQL(table, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frame.New(columns, data, map[string]string{catalog.NameAttr: table})
}
