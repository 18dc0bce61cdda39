package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// SQLite mirrors every table into a single database file. All rows are written in one
// transaction committed on Close and rolled back on Abort.
type SQLite struct {
	path  string
	db    *sql.DB
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
}

// OpenSQLite creates (or truncates) the tables in dbPath and prepares their inserts.
func OpenSQLite(ctx context.Context, dbPath string, tables []Table) (*SQLite, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLite{path: dbPath, db: db, stmts: make(map[string]*sql.Stmt, len(tables))}
	if err := s.createTables(ctx, tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("begin: %w", err)
	}
	s.tx = tx
	for _, t := range tables {
		stmt, err := tx.PrepareContext(ctx, insertStatement(t))
		if err != nil {
			_ = tx.Rollback()
			db.Close()
			return nil, utils.NewAppError("prepare insert", t.Name, err)
		}
		s.stmts[t.Name] = stmt
	}
	return s, nil
}

func (s *SQLite) createTables(ctx context.Context, tables []Table) error {
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = quoteIdent(c) + " TEXT"
		}
		schema := fmt.Sprintf("DROP TABLE IF EXISTS %s; CREATE TABLE %s (%s);",
			quoteIdent(t.Name), quoteIdent(t.Name), strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return utils.NewAppError("create table", t.Name, err)
		}
	}
	return nil
}

func insertStatement(t Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// WriteRow implements RowWriter.
func (s *SQLite) WriteRow(table Table, row []string) error {
	stmt, ok := s.stmts[table.Name]
	if !ok {
		return utils.NewAppError("insert", table.Name, fmt.Errorf("table not prepared"))
	}
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	_, err := stmt.Exec(args...)
	return utils.NewAppError("insert", table.Name, err)
}

// Close commits the pending transaction and closes the database.
func (s *SQLite) Close() error {
	return s.finish(true)
}

// Abort rolls back the pending transaction, closes the database and removes its file.
func (s *SQLite) Abort() error {
	errs := []error{s.finish(false)}
	if s.path != ":memory:" {
		for _, name := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
			if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(name), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *SQLite) finish(commit bool) error {
	var errs []error
	for name, stmt := range s.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, utils.NewAppError("close statement", name, err))
		}
	}
	s.stmts = map[string]*sql.Stmt{}
	if s.tx != nil {
		if commit {
			if err := s.tx.Commit(); err != nil {
				errs = append(errs, fmt.Errorf("commit: %w", err))
			}
		} else if err := s.tx.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("rollback: %w", err))
		}
		s.tx = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		s.db = nil
	}
	return errors.Join(errs...)
}
