package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/runner"
	"github.com/krew-solutions/ascetic-oql/asceticoql/session"
	pgxsession "github.com/krew-solutions/ascetic-oql/asceticoql/session/pgx"
	sqlsession "github.com/krew-solutions/ascetic-oql/asceticoql/session/sql"
)

type RunOptions struct {
	CompileOptions
	DSN string
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{CompileOptions: CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a query and print its rows",
		Long: `Compile a YAML query document and execute it. PostgreSQL without --dsn
connects through a pgx pool configured by DB_USERNAME, DB_PASSWORD,
DB_HOST, DB_PORT and DB_DATABASE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (YAML)")
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "parameter values (YAML)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database connection string")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runQuery(ctx context.Context, opts *RunOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger(errOut)
	compiler, _, err := opts.compiler(logger)
	if err != nil {
		return err
	}
	res, params, err := opts.compile(compiler)
	if err != nil {
		return err
	}
	r := runner.New(compiler, runner.WithLogger(logger))

	return withSession(ctx, compiler.Dialect(), opts.DSN, func(s session.DbSession) error {
		return r.Each(s, res, params, func(row []any) error {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			_, err := fmt.Fprintln(out, strings.Join(cells, "\t"))
			return err
		})
	})
}

// withSession opens a session for d and passes it to fn.
func withSession(ctx context.Context, d dialect.Dialect, dsn string, fn func(session.DbSession) error) error {
	if dsn == "" && d.Name() == dialect.Postgres.Name() {
		pool, err := pgxsession.Connect(ctx, session.ConnConfigFromEnv())
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Session(ctx, func(s session.Session) error {
			return fn(s.(session.DbSession))
		})
	}
	db, err := sqlsession.Open(d.Name(), dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(sqlsession.NewSession(ctx, db))
}
