package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	createAuditTableQuery = `CREATE TABLE IF NOT EXISTS audit_log (
		id         BIGSERIAL PRIMARY KEY,
		stream     TEXT        NOT NULL,
		line       TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	insertAuditLineQuery = `INSERT INTO audit_log (stream, line) VALUES ($1, $2)`
)

// PostgresSink stores each line as a row of audit_log. A batch is written in
// one transaction, so it lands entirely or not at all.
type PostgresSink struct {
	db     *sqlx.DB
	stream Stream
}

// NewPostgresSink does not take ownership of db; Close leaves it open.
func NewPostgresSink(db *sqlx.DB, stream Stream) *PostgresSink {
	return &PostgresSink{db: db, stream: stream}
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createAuditTableQuery); err != nil {
		return fmt.Errorf("create audit_log table: %w", err)
	}
	return nil
}

func (s *PostgresSink) Append(ctx context.Context, lines []string) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, insertAuditLineQuery)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err = stmt.ExecContext(ctx, string(s.stream), strings.TrimRight(line, "\n")); err != nil {
			return fmt.Errorf("insert audit line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return nil
}
