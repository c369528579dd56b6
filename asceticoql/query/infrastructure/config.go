package query

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-oql/asceticoql/dialect"
)

// Config is the file form of the compiler options.
type Config struct {
	Dialect              string `yaml:"dialect"`
	InlineLiterals       bool   `yaml:"inline_literals"`
	NullOnEmptyAggregate *bool  `yaml:"null_on_empty_aggregate"`
	InClauseLimit        int    `yaml:"in_clause_limit"`
}

func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "unable to decode compiler config")
	}
	return cfg, nil
}

// Options converts cfg into compiler options. Unset fields keep the
// compiler defaults.
func (cfg Config) Options() ([]CompilerOption, error) {
	var opts []CompilerOption
	if cfg.Dialect != "" {
		d, err := dialect.ByName(cfg.Dialect)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDialect(d))
	}
	if cfg.InlineLiterals {
		opts = append(opts, InlineLiterals(true))
	}
	if cfg.NullOnEmptyAggregate != nil {
		opts = append(opts, NullOnEmptyAggregate(*cfg.NullOnEmptyAggregate))
	}
	if cfg.InClauseLimit < 0 {
		return nil, errors.Errorf("in_clause_limit must not be negative, got %d", cfg.InClauseLimit)
	}
	if cfg.InClauseLimit > 0 {
		opts = append(opts, InClauseLimit(cfg.InClauseLimit))
	}
	return opts, nil
}
