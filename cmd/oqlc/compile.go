package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	query "github.com/krew-solutions/ascetic-oql/asceticoql/query/infrastructure"
)

type CompileOptions struct {
	*RootOptions
	Query  string
	Params string
	JSON   bool
}

// compiled is the JSON form of a compiled statement.
type compiled struct {
	SQL      string   `json:"sql"`
	Args     []any    `json:"args"`
	Kinds    []string `json:"kinds"`
	Distinct bool     `json:"distinct"`
	Extent   bool     `json:"extent"`
}

func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SQL of a query",
		Long: `Compile a YAML query document against the class mapping and print the
SQL with the values bound to its placeholders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (YAML)")
	cmd.Flags().StringVarP(&opts.Params, "params", "p", "", "parameter values (YAML)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runCompile(opts *CompileOptions, out, errOut io.Writer) error {
	compiler, _, err := opts.compiler(opts.logger(errOut))
	if err != nil {
		return err
	}
	res, params, err := opts.compile(compiler)
	if err != nil {
		return err
	}
	args, err := res.Args(params)
	if err != nil {
		return err
	}

	if opts.JSON {
		kinds := make([]string, len(res.Kinds))
		for i, k := range res.Kinds {
			kinds[i] = k.String()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(compiled{
			SQL:      res.SQL,
			Args:     args,
			Kinds:    kinds,
			Distinct: res.Distinct,
			Extent:   res.Extent,
		})
	}

	fmt.Fprintln(out, res.SQL)
	for i, a := range args {
		fmt.Fprintf(out, "  %d: %v\n", i+1, a)
	}
	return nil
}

// compile reads the query and its parameters and compiles them.
func (o *CompileOptions) compile(compiler *query.Compiler) (*query.Result, query.Params, error) {
	oq, err := readQuery(o.Query)
	if err != nil {
		return nil, nil, err
	}
	params := query.Params{}
	if o.Params != "" {
		if params, err = readFile(o.Params, decodeParams); err != nil {
			return nil, nil, err
		}
	}
	res, err := compiler.Compile(oq, params)
	if err != nil {
		return nil, nil, err
	}
	return res, params, nil
}
