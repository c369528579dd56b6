package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	query "github.com/krew-solutions/ascetic-oql/asceticoql/query/infrastructure"
	"github.com/krew-solutions/ascetic-oql/asceticoql/query/yamlquery"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	Verbose bool
	Mapping string
	Config  string
	Dialect string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "oqlc",
		Short:         "Object query compiler",
		Long:          "Compiles object queries over a YAML class mapping into SQL for PostgreSQL, MySQL, SQLite or Oracle.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log compiler activity to stderr")
	cmd.PersistentFlags().StringVarP(&opts.Mapping, "mapping", "m", "", "class mapping document (YAML)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "compiler configuration (YAML)")
	cmd.PersistentFlags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect, overrides the configuration")
	_ = cmd.MarkPersistentFlagRequired("mapping")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// compiler builds a compiler from the mapping and configuration files.
func (o *RootOptions) compiler(logger *slog.Logger) (*query.Compiler, query.Config, error) {
	repo, err := readFile(o.Mapping, mapping.LoadYAML)
	if err != nil {
		return nil, query.Config{}, err
	}
	var cfg query.Config
	if o.Config != "" {
		if cfg, err = readFile(o.Config, query.LoadConfig); err != nil {
			return nil, query.Config{}, err
		}
	}
	if o.Dialect != "" {
		cfg.Dialect = o.Dialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = "postgres"
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, query.Config{}, err
	}
	opts = append(opts, query.WithLogger(logger))
	return query.NewCompiler(repo, opts...), cfg, nil
}

func readQuery(path string) (q.Query, error) {
	return readFile(path, yamlquery.Decode)
}

func readFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrap(err, "unable to open file")
	}
	defer f.Close()
	v, err := decode(f)
	if err != nil {
		return zero, errors.Wrapf(err, "%s", path)
	}
	return v, nil
}
