package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/theLastOfCats/manhwa-go-server/internal/apperr"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQLite string

//go:embed schema_mysql.sql
var schemaMySQL string

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

type DB struct {
	*sql.DB
	Dialect string
}

func New(dsn string) (*DB, error) {
	var db *sql.DB
	var err error
	var dialect string

	// MySQL DSN: user:password@tcp(host:port)/dbname
	// SQLite DSN: file path (data/manhwa.db, /path/to/db.sqlite, :memory:)
	if strings.Contains(dsn, "@") {
		dialect = DialectMySQL
		db, err = sql.Open("mysql", dsn)
	} else {
		dialect = DialectSQLite
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			dir := filepath.Dir(dsn)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		if !strings.Contains(dsn, "?") {
			dsn += "?"
		} else {
			dsn += "&"
		}

		// Writers take the lock at BEGIN so that read-then-write
		// transactions never upgrade into SQLITE_BUSY mid-flight.
		params := []string{
			"_txlock=immediate",
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(WAL)",
			"_pragma=busy_timeout(30000)",
			"_pragma=synchronous(NORMAL)",
			"_pragma=cache_size(-20000)",
			"_pragma=temp_store(MEMORY)",
		}
		dsn += strings.Join(params, "&")

		db, err = sql.Open("sqlite", dsn)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(25)
	}

	if err := initSchema(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

func initSchema(db *sql.DB, dialect string) error {
	schema := schemaSQLite
	if dialect == DialectMySQL {
		schema = schemaMySQL
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the typed queries against either the pool or a transaction.
type Queries struct {
	q querier
}

// Queries returns a Queries bound to the connection pool.
func (db *DB) Queries() *Queries {
	return &Queries{q: db.DB}
}

func (db *DB) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx}); err != nil {
		return classify(err)
	}

	return classify(tx.Commit())
}

// RetryTx runs fn in a fresh transaction, starting over while it fails
// with a concurrency conflict.
func (db *DB) RetryTx(ctx context.Context, attempts int, fn func(*Queries) error) error {
	return Retry(ctx, attempts, func() error {
		return db.WithTx(ctx, fn)
	})
}

// Retry calls fn until it succeeds, fails with anything other than a
// concurrency conflict, or attempts are exhausted. The last conflict is
// returned in the latter case.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := range attempts {
		err = fn()
		if err == nil || !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		if i < attempts-1 {
			if werr := backoff(ctx, i); werr != nil {
				return werr
			}
		}
	}
	return err
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt+1) * 5 * time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsUniqueViolation reports whether err is a unique or primary key
// violation from either driver.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}

func IsForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1452
	}
	return false
}

// isTransient reports lock contention that a retry can resolve.
func isTransient(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		primary := se.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		// deadlock, lock wait timeout
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

func classify(err error) error {
	if err == nil || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	if isTransient(err) {
		return apperr.Conflict(err, "database is busy")
	}
	return err
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
