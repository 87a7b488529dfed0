package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"
)

// mysqlErrDuplicateEntry is the server error number for unique key violations.
const mysqlErrDuplicateEntry = 1062

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		user_id     CHAR(36)     NOT NULL,
		title       VARCHAR(500) NOT NULL,
		description TEXT         NOT NULL,
		priority    VARCHAR(16)  NOT NULL,
		status      VARCHAR(16)  NOT NULL,
		due_date    DATETIME(3)  NOT NULL,
		created_at  DATETIME(3)  NOT NULL,
		KEY idx_tasks_user_id (user_id)
	)`,
}

// NewDB creates a new MySQL database connection pool with the given DSN and
// waits for the server to answer a ping.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	backoff := retry.WithMaxRetries(5, retry.NewExponential(250*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("database ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the users and tasks tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func openMySQL(ctx context.Context, dsn string) (*Store, error) {
	db, err := NewDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		Users:  NewMySQLUserRepository(db),
		Tasks:  NewMySQLTaskRepository(db),
		Health: &mysqlHealth{db: db},
		close:  func(context.Context) error { return db.Close() },
	}, nil
}

type mysqlHealth struct {
	db *sql.DB
}

func (h *mysqlHealth) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *mysqlHealth) Describe(ctx context.Context) (Status, error) {
	var name sql.NullString
	if err := h.db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&name); err != nil {
		return Status{}, err
	}

	rows, err := h.db.QueryContext(ctx, `SHOW TABLES`)
	if err != nil {
		return Status{}, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return Status{}, err
		}
		tables = append(tables, t)
	}

	return Status{Driver: "mysql", Database: name.String, Collections: tables}, rows.Err()
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry
}

// sqlNow truncates to the millisecond precision of DATETIME(3) columns.
func sqlNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
