package pgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-oql/asceticoql/session"
)

type SessionPool struct {
	pool *pgxpool.Pool
}

func NewSessionPool(pool *pgxpool.Pool) *SessionPool {
	return &SessionPool{pool: pool}
}

// Connect opens a pool for cfg.
func Connect(ctx context.Context, cfg session.ConnConfig) (*SessionPool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pgx pool")
	}
	return NewSessionPool(pool), nil
}

func (p *SessionPool) Close() {
	p.pool.Close()
}

func (p *SessionPool) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to acquire connection")
	}
	defer conn.Release()

	return callback(NewSession(ctx, conn))
}
