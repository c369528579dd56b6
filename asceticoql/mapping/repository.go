package mapping

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Resolver resolves persistent types and fields to their relational mapping.
type Resolver interface {
	ClassMapping(name string) (*ClassMapping, error)
	FieldMapping(owner *ClassMapping, name string) (*FieldMapping, error)
}

// Repository is an in-memory Resolver.
type Repository struct {
	tables  map[string]*Table
	classes map[string]*ClassMapping
	order   []*ClassMapping
}

func NewRepository() *Repository {
	return &Repository{
		tables:  make(map[string]*Table),
		classes: make(map[string]*ClassMapping),
	}
}

// AddTable registers t and returns it.
func (r *Repository) AddTable(t *Table) *Table {
	r.tables[t.Name] = t
	return t
}

func (r *Repository) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTable, name)
	}
	return t, nil
}

// Register adds c, making it resolvable by name.
func (r *Repository) Register(c *ClassMapping) *ClassMapping {
	if _, ok := r.classes[c.Name]; !ok {
		r.order = append(r.order, c)
	}
	r.classes[c.Name] = c
	if c.Table != nil {
		if _, ok := r.tables[c.Table.Name]; !ok {
			r.tables[c.Table.Name] = c.Table
		}
	}
	return c
}

func (r *Repository) ClassMapping(name string) (*ClassMapping, error) {
	c, ok := r.classes[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownClass, name)
	}
	return c, nil
}

func (r *Repository) FieldMapping(owner *ClassMapping, name string) (*FieldMapping, error) {
	f := owner.Field(name)
	if f == nil {
		return nil, errors.Wrapf(ErrUnknownField, "%s.%s", owner.Name, name)
	}
	return f, nil
}

// Classes returns the registered classes in registration order.
func (r *Repository) Classes() []*ClassMapping {
	return r.order
}

// Validate checks every registered class and reports all problems at once.
func (r *Repository) Validate() error {
	var result *multierror.Error
	for _, c := range r.order {
		if c.Table == nil {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidMapping, "%s: no table", c.Name))
			continue
		}
		if len(c.PrimaryKeyColumns()) == 0 {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidMapping, "%s: no primary key", c.Name))
		}
		if c.Strategy == StrategyVertical && c.SuperclassJoin == nil {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidMapping, "%s: vertical subclass without superclass join", c.Name))
		}
		if c.Strategy == StrategyFlat && c.Discriminator == nil {
			result = multierror.Append(result, errors.Wrapf(ErrInvalidMapping, "%s: flat subclass without discriminator", c.Name))
		}
		for _, f := range c.DeclaredFields() {
			if err := validateField(f); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

func validateField(f *FieldMapping) error {
	switch f.Kind {
	case FieldBasic, FieldXML:
		if len(f.Value.Columns) == 0 {
			return errors.Wrapf(ErrInvalidMapping, "%s: no columns", f)
		}
	case FieldRelation:
		if f.Value.Related == nil {
			return errors.Wrapf(ErrInvalidMapping, "%s: relation without related class", f)
		}
		if f.Value.ForeignKey == nil && f.Value.InverseForeignKey() == nil {
			return errors.Wrapf(ErrInvalidMapping, "%s: relation without foreign key", f)
		}
	case FieldCollection, FieldMap:
		if f.ElementForeignKey() == nil {
			return errors.Wrapf(ErrInvalidMapping, "%s: collection without join key", f)
		}
		if f.Kind == FieldMap && f.JoinTable == nil {
			return errors.Wrapf(ErrInvalidMapping, "%s: map without join table", f)
		}
	}
	return nil
}
