// Copyright (c) 2025 Neomantra Corp

package query

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// maxQueryRows caps ad-hoc query results.
const maxQueryRows = 10000

// safeViewName matches valid view names. Only alphanumeric, dot, hyphen, and
// underscore are allowed.
var safeViewName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// sqlLiteral escapes a string for use as a SQL string literal, preventing SQL
// injection via embedded single quotes.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ParquetQuerier runs ad-hoc SQL over exported tick parquet files through an
// in-memory DuckDB database.
type ParquetQuerier struct {
	db *sql.DB
}

// NewParquetQuerier opens an in-memory DuckDB database with extensions and
// remote filesystem access disabled. Local file access stays enabled because
// read_parquet() needs it; lock_configuration prevents user SQL from
// re-enabling the rest.
func NewParquetQuerier() (*ParquetQuerier, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	for _, stmt := range []string{
		"SET autoinstall_known_extensions = false",
		"SET autoload_known_extensions = false",
		"SET allow_community_extensions = false",
		"SET disabled_filesystems = 'HTTPFileSystem'",
		"SET lock_configuration = true",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure DuckDB (%s): %w", stmt, err)
		}
	}
	return &ParquetQuerier{db: db}, nil
}

// Close closes the DuckDB connection.
func (q *ParquetQuerier) Close() error {
	if q.db != nil {
		return q.db.Close()
	}
	return nil
}

// CreateView creates or replaces a view over a parquet path or glob.
func (q *ParquetQuerier) CreateView(viewName string, parquetGlob string) error {
	if !safeViewName.MatchString(viewName) {
		return fmt.Errorf("invalid view name '%s'", viewName)
	}
	stmt := fmt.Sprintf(`CREATE OR REPLACE VIEW "%s" AS SELECT * FROM read_parquet(%s)`,
		viewName, sqlLiteral(parquetGlob))
	_, err := q.db.Exec(stmt)
	return err
}

///////////////////////////////////////////////////////////////////////////////

// renderCell converts one scanned SQL cell to its CSV text.
func renderCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// scanRowStrings scans the current row of rows into n rendered cells.
func scanRowStrings(rows *sql.Rows, n int) ([]string, error) {
	cells := make([]any, n)
	for i := range cells {
		cells[i] = new(any)
	}
	if err := rows.Scan(cells...); err != nil {
		return nil, err
	}
	record := make([]string, n)
	for i := range cells {
		record[i] = renderCell(*cells[i].(*any))
	}
	return record, nil
}

// QueryCSV executes a SQL query and returns the results as CSV, capped at
// maxQueryRows rows.
func (q *ParquetQuerier) QueryCSV(userSQL string) (string, error) {
	rows, err := q.db.Query(
		"SELECT * FROM (" + userSQL + ") LIMIT " + strconv.Itoa(maxQueryRows))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	csvWriter := csv.NewWriter(&out)
	if err := csvWriter.Write(header); err != nil {
		return "", err
	}
	for rows.Next() {
		record, err := scanRowStrings(rows, len(header))
		if err != nil {
			return "", err
		}
		if err := csvWriter.Write(record); err != nil {
			return "", err
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	csvWriter.Flush()
	return out.String(), csvWriter.Error()
}
