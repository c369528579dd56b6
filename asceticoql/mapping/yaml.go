package mapping

import (
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type columnDoc struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

type tableDoc struct {
	Name       string      `yaml:"name"`
	Schema     string      `yaml:"schema"`
	PrimaryKey []string    `yaml:"primary_key"`
	Columns    []columnDoc `yaml:"columns"`
}

type discriminatorDoc struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
}

type fieldDoc struct {
	Name           string   `yaml:"name"`
	Kind           string   `yaml:"kind"`
	Type           string   `yaml:"type"`
	Column         string   `yaml:"column"`
	Columns        []string `yaml:"columns"`
	Related        string   `yaml:"related"`
	MappedBy       string   `yaml:"mapped_by"`
	JoinTable      string   `yaml:"join_table"`
	JoinColumns    []string `yaml:"join_columns"`
	ElementType    string   `yaml:"element_type"`
	ElementColumns []string `yaml:"element_columns"`
	KeyType        string   `yaml:"key_type"`
	KeyRelated     string   `yaml:"key_related"`
	KeyColumns     []string `yaml:"key_columns"`
}

type classDoc struct {
	Name          string            `yaml:"name"`
	Table         string            `yaml:"table"`
	Extends       string            `yaml:"extends"`
	Strategy      string            `yaml:"strategy"`
	Discriminator *discriminatorDoc `yaml:"discriminator"`
	Fields        []fieldDoc        `yaml:"fields"`
}

type document struct {
	Tables  []tableDoc `yaml:"tables"`
	Classes []classDoc `yaml:"classes"`
}

// LoadYAML builds a Repository from a YAML mapping document and validates it.
func LoadYAML(r io.Reader) (*Repository, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "unable to decode mapping document")
	}
	repo := NewRepository()
	for _, td := range doc.Tables {
		t := NewTable(td.Name)
		t.Schema = td.Schema
		for _, cd := range td.Columns {
			t.AddColumn(cd.Name, kindOf(cd.Kind))
		}
		for _, pk := range td.PrimaryKey {
			if t.Column(pk) == nil {
				return nil, errors.Wrapf(ErrUnknownColumn, "%s.%s", td.Name, pk)
			}
		}
		t.WithPrimaryKey(td.PrimaryKey...)
		repo.AddTable(t)
	}

	var result *multierror.Error
	for _, cd := range doc.Classes {
		var table *Table
		if cd.Table != "" {
			t, err := repo.Table(cd.Table)
			if err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "class %s", cd.Name))
				continue
			}
			table = t
		}
		repo.Register(NewClassMapping(cd.Name, table))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	done := make(map[string]bool)
	var extend func(cd classDoc) error
	byName := make(map[string]classDoc, len(doc.Classes))
	for _, cd := range doc.Classes {
		byName[cd.Name] = cd
	}
	extend = func(cd classDoc) error {
		if done[cd.Name] || cd.Extends == "" {
			done[cd.Name] = true
			return nil
		}
		super, err := repo.ClassMapping(cd.Extends)
		if err != nil {
			return errors.Wrapf(err, "class %s", cd.Name)
		}
		if err := extend(byName[cd.Extends]); err != nil {
			return err
		}
		c, _ := repo.ClassMapping(cd.Name)
		strategy := StrategyVertical
		if cd.Strategy == "flat" {
			strategy = StrategyFlat
		}
		c.Extends(super, strategy)
		done[cd.Name] = true
		return nil
	}
	for _, cd := range doc.Classes {
		if err := extend(cd); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, cd := range doc.Classes {
		c, _ := repo.ClassMapping(cd.Name)
		if cd.Discriminator != nil {
			col := c.Table.Column(cd.Discriminator.Column)
			if col == nil {
				result = multierror.Append(result, errors.Wrapf(ErrUnknownColumn, "%s discriminator %s", cd.Name, cd.Discriminator.Column))
			} else {
				c.WithDiscriminator(col, cd.Discriminator.Value)
			}
		}
		for _, fd := range cd.Fields {
			if err := addField(repo, c, fd); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "field %s.%s", cd.Name, fd.Name))
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	return repo, nil
}

func kindOf(name string) types.Kind {
	k, ok := types.ParseKind(name)
	if !ok {
		return types.KindUnknown
	}
	return k
}

func optionalClass(repo *Repository, name string) (*ClassMapping, error) {
	if name == "" {
		return nil, nil
	}
	return repo.ClassMapping(name)
}

func addField(repo *Repository, c *ClassMapping, fd fieldDoc) error {
	related, err := optionalClass(repo, fd.Related)
	if err != nil {
		return err
	}
	column := fd.Column
	if column == "" && len(fd.Columns) > 0 {
		column = fd.Columns[0]
	}
	switch fd.Kind {
	case "", "basic":
		if column == "" {
			column = fd.Name
		}
		c.AddBasic(fd.Name, column, kindOf(fd.Type))
	case "xml":
		if column == "" {
			column = fd.Name
		}
		c.AddXML(fd.Name, column)
	case "relation":
		if related == nil {
			return errors.Wrap(ErrInvalidMapping, "relation without related class")
		}
		if fd.MappedBy != "" {
			c.AddInverseRelation(fd.Name, related, fd.MappedBy)
			return nil
		}
		if len(fd.Columns) != len(related.PrimaryKeyColumns()) {
			return errors.Wrap(ErrInvalidForeignKey, "column count does not match related primary key")
		}
		c.AddRelation(fd.Name, related, fd.Columns...)
	case "collection":
		if fd.MappedBy != "" {
			if related == nil {
				return errors.Wrap(ErrInvalidMapping, "inverse collection without related class")
			}
			c.AddInverseCollection(fd.Name, related, fd.MappedBy)
			return nil
		}
		jt, err := repo.Table(fd.JoinTable)
		if err != nil {
			return err
		}
		if err := checkKeyCount(len(fd.JoinColumns), len(c.PrimaryKeyColumns())); err != nil {
			return err
		}
		if related != nil {
			if err := checkKeyCount(len(fd.ElementColumns), len(related.PrimaryKeyColumns())); err != nil {
				return err
			}
		}
		c.AddCollectionTable(fd.Name, jt, fd.JoinColumns, related, kindOf(fd.ElementType), fd.ElementColumns...)
	case "map":
		jt, err := repo.Table(fd.JoinTable)
		if err != nil {
			return err
		}
		keyRelated, err := optionalClass(repo, fd.KeyRelated)
		if err != nil {
			return err
		}
		if err := checkKeyCount(len(fd.JoinColumns), len(c.PrimaryKeyColumns())); err != nil {
			return err
		}
		c.AddMapTable(fd.Name, jt, fd.JoinColumns,
			keyRelated, kindOf(fd.KeyType), fd.KeyColumns,
			related, kindOf(fd.ElementType), fd.ElementColumns)
	default:
		return errors.Wrapf(ErrInvalidMapping, "unknown field kind %q", fd.Kind)
	}
	return nil
}

func checkKeyCount(got, want int) error {
	if got != want || got == 0 {
		return errors.Wrapf(ErrInvalidForeignKey, "%d columns for a %d column key", got, want)
	}
	return nil
}
