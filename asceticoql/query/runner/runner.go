// Package runner executes compiled object queries on a database session.
package runner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	query "github.com/krew-solutions/ascetic-oql/asceticoql/query/infrastructure"
	"github.com/krew-solutions/ascetic-oql/asceticoql/session"
	"github.com/krew-solutions/ascetic-oql/asceticoql/signals"
)

// QueryExecutedEvent is sent after every execution, failed ones included.
type QueryExecutedEvent struct {
	Ctx      context.Context
	SQL      string
	Args     []any
	Duration time.Duration
	Rows     int
	Err      error
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type Runner struct {
	compiler   *query.Compiler
	logger     *slog.Logger
	onExecuted *signals.SignalImp[QueryExecutedEvent]
}

func New(compiler *query.Compiler, opts ...Option) *Runner {
	r := &Runner{
		compiler:   compiler,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		onExecuted: signals.NewSignal[QueryExecutedEvent](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) OnExecuted() signals.Signal[QueryExecutedEvent] {
	return r.onExecuted
}

// Run compiles oq and executes it. Each returned row holds one value per
// projection.
func (r *Runner) Run(s session.DbSession, oq q.Query, params query.Params) ([][]any, error) {
	res, err := r.compiler.Compile(oq, params)
	if err != nil {
		return nil, err
	}
	return r.Execute(s, res, params)
}

// Execute runs a compiled statement with params bound to its placeholders.
func (r *Runner) Execute(s session.DbSession, res *query.Result, params query.Params) ([][]any, error) {
	var out [][]any
	err := r.Each(s, res, params, func(row []any) error {
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Each streams the decoded rows of res to fn and stops at the first error
// fn returns.
func (r *Runner) Each(s session.DbSession, res *query.Result, params query.Params, fn func([]any) error) (err error) {
	args, err := res.Args(params)
	if err != nil {
		return err
	}

	start := time.Now()
	count := 0
	defer func() {
		r.done(QueryExecutedEvent{
			Ctx:      s.Context(),
			SQL:      res.SQL,
			Args:     args,
			Duration: time.Since(start),
			Rows:     count,
			Err:      err,
		})
	}()

	rows, err := s.Connection().Query(res.SQL, args...)
	if err != nil {
		return errors.Wrap(err, "unable to execute query")
	}
	defer rows.Close()

	raw := make([]any, res.Columns)
	dest := make([]any, res.Columns)
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return errors.Wrap(err, "unable to scan row")
		}
		row, err := res.Load(raw)
		if err != nil {
			return errors.Wrapf(err, "unable to decode row %d", count)
		}
		count++
		if err := fn(row); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "unable to read rows")
}

func (r *Runner) done(event QueryExecutedEvent) {
	attrs := []slog.Attr{
		slog.String("sql", event.SQL),
		slog.Duration("duration", event.Duration),
		slog.Int("rows", event.Rows),
	}
	if event.Err != nil {
		r.logger.LogAttrs(event.Ctx, slog.LevelError, "query_failed", append(attrs, slog.String("error", event.Err.Error()))...)
	} else {
		r.logger.LogAttrs(event.Ctx, slog.LevelInfo, "query_executed", attrs...)
	}
	r.onExecuted.Notify(event)
}
