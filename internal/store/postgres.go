package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/aeotrack/aeo-workflows/internal/config"
)

// PostgresStore implements TabularStore on a Postgres database. Each logical
// table maps to a real table whose TEXT columns are derived from the header.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres using the pipeline database config.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) EnsureTable(ctx context.Context, name string, header []string) error {
	cols := make([]string, len(header))
	for i, col := range header {
		cols[i] = fmt.Sprintf("%s TEXT", quoteIdent(columnName(col)))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(tableName(name)), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) AppendRows(ctx context.Context, name string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	columns, err := s.tableColumns(ctx, name)
	if err != nil {
		return err
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}

	var (
		placeholders []string
		args         []interface{}
	)
	arg := 1
	for _, row := range rows {
		slots := make([]string, len(columns))
		for i := range columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			slots[i] = fmt.Sprintf("$%d", arg)
			args = append(args, value)
			arg++
		}
		placeholders = append(placeholders, "("+strings.Join(slots, ", ")+")")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		quoteIdent(tableName(name)), strings.Join(quoted, ", "), strings.Join(placeholders, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), name, err)
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, name string) ([][]string, error) {
	columns, err := s.tableColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", name)
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(tableName(name)))
	sqlRows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", name, err)
	}
	defer sqlRows.Close()

	result := [][]string{columns}
	for sqlRows.Next() {
		raw, err := sqlRows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", name, err)
		}
		row := make([]string, len(raw))
		for i, v := range raw {
			switch value := v.(type) {
			case nil:
			case string:
				row[i] = value
			case []byte:
				row[i] = string(value)
			default:
				row[i] = fmt.Sprintf("%v", value)
			}
		}
		result = append(result, row)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", name, err)
	}

	return result, nil
}

// tableColumns returns the column names in their declared order, which is the
// header order EnsureTable created them in.
func (s *PostgresStore) tableColumns(ctx context.Context, name string) ([]string, error) {
	var columns []string
	err := s.db.SelectContext(ctx, &columns,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_name = $1 ORDER BY ordinal_position`,
		tableName(name),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}
	return columns, nil
}

// tableName and columnName map arbitrary header strings onto safe lowercase
// identifiers. Postgres folds unquoted identifiers anyway; doing it here
// keeps ReadAll headers stable across backends.
func tableName(name string) string {
	return sanitizeIdent(name)
}

func columnName(header string) string {
	return sanitizeIdent(header)
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "t_" + out
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + s + `"`
}
