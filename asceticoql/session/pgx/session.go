package pgx

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-oql/asceticoql/session"
)

// Session is a pooled connection outside any transaction.
type Session struct {
	ctx  context.Context
	conn *pgxpool.Conn
}

func NewSession(ctx context.Context, conn *pgxpool.Conn) *Session {
	return &Session{ctx: ctx, conn: conn}
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Connection() session.DbConnection {
	return &connection{ctx: s.ctx, exec: s.conn}
}

func (s *Session) Atomic(callback session.SessionCallback) error {
	tx, err := s.conn.Begin(s.ctx)
	if err != nil {
		return errors.Wrap(err, "unable to start transaction")
	}
	return runInTx(s.ctx, tx, NewTransactionSession(s.ctx, tx), callback, "failed to commit transaction")
}

// TransactionSession runs inside a transaction. Nested Atomic calls
// open savepoints.
type TransactionSession struct {
	ctx context.Context
	tx  pgx.Tx
}

func NewTransactionSession(ctx context.Context, tx pgx.Tx) *TransactionSession {
	return &TransactionSession{ctx: ctx, tx: tx}
}

func (s *TransactionSession) Context() context.Context {
	return s.ctx
}

func (s *TransactionSession) Connection() session.DbConnection {
	return &connection{ctx: s.ctx, exec: s.tx}
}

func (s *TransactionSession) Atomic(callback session.SessionCallback) error {
	nested, err := s.tx.Begin(s.ctx)
	if err != nil {
		return errors.Wrap(err, "unable to start savepoint")
	}
	return runInTx(s.ctx, nested, NewTransactionSession(s.ctx, nested), callback, "failed to commit savepoint")
}

func runInTx(ctx context.Context, tx pgx.Tx, sess session.Session, callback session.SessionCallback, commitMsg string) error {
	if err := callback(sess); err != nil {
		if txErr := tx.Rollback(ctx); txErr != nil {
			return multierror.Append(err, txErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, commitMsg)
	}
	return nil
}

// executor is implemented by both *pgxpool.Conn and pgx.Tx.
type executor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

type connection struct {
	ctx  context.Context
	exec executor
}

func (c *connection) Exec(query string, args ...any) (session.Result, error) {
	tag, err := c.exec.Exec(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return session.RowsAffected(tag.RowsAffected()), nil
}

func (c *connection) Query(query string, args ...any) (session.Rows, error) {
	rows, err := c.exec.Query(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rows: rows}, nil
}

func (c *connection) QueryRow(query string, args ...any) session.Row {
	return &rowAdapter{row: c.exec.QueryRow(c.ctx, query, args...)}
}
