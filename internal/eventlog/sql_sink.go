package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect selects placeholder and DDL syntax for SQLSink.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q (want sqlite or pgx)", driver)
	}
}

const createEventsTable = `CREATE TABLE IF NOT EXISTS vigil_events (
	seq   BIGINT NOT NULL,
	id    TEXT   NOT NULL,
	at_ns BIGINT NOT NULL,
	kind  TEXT   NOT NULL,
	line  TEXT   NOT NULL
)`

// SQLSink appends event lines into the vigil_events table.
// The full line is stored verbatim next to a few indexed columns.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	insert  string
	ownsDB  bool
}

// OpenSQLSink opens a database with driver ("sqlite" or "pgx") and dsn and
// ensures the events table exists.
func OpenSQLSink(ctx context.Context, driver, dsn string) (*SQLSink, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	if driver == "postgres" {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps in-memory databases coherent and sqlite writes serialized.
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLSink(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLSink wraps an existing handle. The caller keeps ownership of db.
func NewSQLSink(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLSink, error) {
	if _, err := db.ExecContext(ctx, createEventsTable); err != nil {
		return nil, fmt.Errorf("failed to create vigil_events table: %w", err)
	}

	insert := "INSERT INTO vigil_events (seq, id, at_ns, kind, line) VALUES (?, ?, ?, ?, ?)"
	if dialect == DialectPostgres {
		insert = "INSERT INTO vigil_events (seq, id, at_ns, kind, line) VALUES ($1, $2, $3, $4, $5)"
	}
	return &SQLSink{db: db, dialect: dialect, insert: insert}, nil
}

// lineHeader is the subset of an event line stored in dedicated columns.
type lineHeader struct {
	ID   string `json:"id"`
	Seq  uint64 `json:"seq"`
	At   int64  `json:"at"`
	Kind string `json:"kind"`
}

func (s *SQLSink) Append(ctx context.Context, line []byte) error {
	var h lineHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return fmt.Errorf("failed to read event line header: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.insert, int64(h.Seq), h.ID, h.At, h.Kind, string(line)); err != nil {
		return fmt.Errorf("failed to insert event %s: %w", h.ID, err)
	}
	return nil
}

// Lines returns every stored line in persisted order.
func (s *SQLSink) Lines(ctx context.Context) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT line FROM vigil_events ORDER BY at_ns, seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query vigil_events: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan event line: %w", err)
		}
		out = append(out, []byte(line))
	}
	return out, rows.Err()
}

func (s *SQLSink) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
