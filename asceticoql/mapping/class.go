package mapping

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// Strategy is how a class hierarchy is laid out in tables.
type Strategy int

const (
	// StrategyNone is a class without a mapped superclass.
	StrategyNone Strategy = iota
	// StrategyFlat stores the subclass in its superclass table (horizontal).
	StrategyFlat
	// StrategyVertical stores the subclass in its own table joined to the
	// superclass table by primary key.
	StrategyVertical
)

func (s Strategy) String() string {
	switch s {
	case StrategyFlat:
		return "flat"
	case StrategyVertical:
		return "vertical"
	}
	return "none"
}

// Discriminator identifies the concrete subtype of a row.
type Discriminator struct {
	Column *Column
	Value  any
}

// ClassMapping maps a persistent type to its table.
type ClassMapping struct {
	Name          string
	Table         *Table
	Superclass    *ClassMapping
	Strategy      Strategy
	Discriminator *Discriminator
	// SuperclassJoin joins this class's primary key to the superclass
	// primary key. Only vertical subclasses have one.
	SuperclassJoin *ForeignKey

	subclasses []*ClassMapping
	fields     []*FieldMapping
	byName     map[string]*FieldMapping
}

func NewClassMapping(name string, table *Table) *ClassMapping {
	return &ClassMapping{
		Name:   name,
		Table:  table,
		byName: make(map[string]*FieldMapping),
	}
}

// Extends makes c a subclass of super. A vertical subclass joins to the
// superclass table through its primary key.
func (c *ClassMapping) Extends(super *ClassMapping, strategy Strategy) *ClassMapping {
	c.Superclass = super
	c.Strategy = strategy
	super.subclasses = append(super.subclasses, c)
	switch strategy {
	case StrategyFlat:
		c.Table = super.Table
	case StrategyVertical:
		if c.Table != nil && len(c.Table.PrimaryKey) > 0 && len(super.PrimaryKeyColumns()) > 0 {
			c.SuperclassJoin, _ = NewForeignKey(c.Table.PrimaryKey, super.PrimaryKeyColumns())
		}
	}
	return c
}

// WithDiscriminator sets the discriminator column and this class's value.
func (c *ClassMapping) WithDiscriminator(col *Column, value any) *ClassMapping {
	c.Discriminator = &Discriminator{Column: col, Value: value}
	return c
}

func (c *ClassMapping) PrimaryKeyColumns() []*Column {
	if c.Table == nil {
		return nil
	}
	return c.Table.PrimaryKey
}

// Subclasses returns the direct subclasses.
func (c *ClassMapping) Subclasses() []*ClassMapping {
	return c.subclasses
}

// AllSubclasses returns every descendant, depth first.
func (c *ClassMapping) AllSubclasses() []*ClassMapping {
	var out []*ClassMapping
	for _, sub := range c.subclasses {
		out = append(out, sub)
		out = append(out, sub.AllSubclasses()...)
	}
	return out
}

// IsAssignableFrom reports whether other is c or one of its descendants.
func (c *ClassMapping) IsAssignableFrom(other *ClassMapping) bool {
	for o := other; o != nil; o = o.Superclass {
		if o == c {
			return true
		}
	}
	return false
}

// Root returns the least derived mapped class of the hierarchy.
func (c *ClassMapping) Root() *ClassMapping {
	r := c
	for r.Superclass != nil {
		r = r.Superclass
	}
	return r
}

// AddField declares a field on this class.
func (c *ClassMapping) AddField(f *FieldMapping) *FieldMapping {
	f.Owner = c
	c.fields = append(c.fields, f)
	c.byName[f.Name] = f
	return f
}

// DeclaredField returns a field declared by c itself.
func (c *ClassMapping) DeclaredField(name string) *FieldMapping {
	return c.byName[name]
}

// Field resolves a field declared by c or one of its superclasses.
func (c *ClassMapping) Field(name string) *FieldMapping {
	for o := c; o != nil; o = o.Superclass {
		if f, ok := o.byName[name]; ok {
			return f
		}
	}
	return nil
}

// DeclaredFields returns the fields declared by c in declaration order.
func (c *ClassMapping) DeclaredFields() []*FieldMapping {
	return c.fields
}

// Fields returns inherited fields first, then declared ones.
func (c *ClassMapping) Fields() []*FieldMapping {
	if c.Superclass == nil {
		return c.fields
	}
	return append(append([]*FieldMapping{}, c.Superclass.Fields()...), c.fields...)
}

// AddBasic declares a single-column value field.
func (c *ClassMapping) AddBasic(name, column string, kind types.Kind) *FieldMapping {
	col := c.Table.AddColumn(column, kind)
	return c.AddField(&FieldMapping{
		Name:  name,
		Kind:  FieldBasic,
		Value: ValueMapping{Kind: kind, Columns: []*Column{col}},
	})
}

// AddXML declares a field holding an XML document navigable by path.
func (c *ClassMapping) AddXML(name, column string) *FieldMapping {
	col := c.Table.AddColumn(column, types.KindString)
	return c.AddField(&FieldMapping{
		Name:  name,
		Kind:  FieldXML,
		Value: ValueMapping{Kind: types.KindString, Columns: []*Column{col}},
	})
}

// AddRelation declares a to-one relation whose foreign key columns live in
// c's table.
func (c *ClassMapping) AddRelation(name string, related *ClassMapping, columns ...string) *FieldMapping {
	pks := related.PrimaryKeyColumns()
	cols := make([]*Column, len(columns))
	for i, n := range columns {
		kind := types.KindUnknown
		if i < len(pks) {
			kind = pks[i].Kind
		}
		cols[i] = c.Table.AddColumn(n, kind)
	}
	fk, err := NewForeignKey(cols, pks)
	if err != nil {
		panic(err)
	}
	return c.AddField(&FieldMapping{
		Name: name,
		Kind: FieldRelation,
		Value: ValueMapping{
			Kind:       types.KindObject,
			Columns:    cols,
			Related:    related,
			ForeignKey: fk,
		},
	})
}

// AddInverseRelation declares a to-one relation owned by mappedBy on the
// related class.
func (c *ClassMapping) AddInverseRelation(name string, related *ClassMapping, mappedBy string) *FieldMapping {
	return c.AddField(&FieldMapping{
		Name: name,
		Kind: FieldRelation,
		Value: ValueMapping{
			Kind:     types.KindObject,
			Related:  related,
			MappedBy: mappedBy,
		},
	})
}

// AddInverseCollection declares a one-to-many collection whose elements hold
// the foreign key back to c.
func (c *ClassMapping) AddInverseCollection(name string, related *ClassMapping, mappedBy string) *FieldMapping {
	return c.AddField(&FieldMapping{
		Name: name,
		Kind: FieldCollection,
		Element: ValueMapping{
			Kind:     types.KindObject,
			Related:  related,
			MappedBy: mappedBy,
		},
	})
}

// AddCollectionTable declares a collection stored in a join table. When
// related is nil the elements are values held in elementColumns, otherwise
// elementColumns reference related's primary key.
func (c *ClassMapping) AddCollectionTable(name string, joinTable *Table, joinColumns []string, related *ClassMapping, elementKind types.Kind, elementColumns ...string) *FieldMapping {
	f := &FieldMapping{Name: name, Kind: FieldCollection, JoinTable: joinTable}
	f.JoinForeignKey = joinKey(joinTable, joinColumns, c.PrimaryKeyColumns())
	f.Element = tableValue(joinTable, related, elementKind, elementColumns)
	return c.AddField(f)
}

// AddMapTable declares a map stored in a join table with key and value
// columns.
func (c *ClassMapping) AddMapTable(name string, joinTable *Table, joinColumns []string, keyRelated *ClassMapping, keyKind types.Kind, keyColumns []string, valueRelated *ClassMapping, valueKind types.Kind, valueColumns []string) *FieldMapping {
	f := &FieldMapping{Name: name, Kind: FieldMap, JoinTable: joinTable}
	f.JoinForeignKey = joinKey(joinTable, joinColumns, c.PrimaryKeyColumns())
	f.Key = tableValue(joinTable, keyRelated, keyKind, keyColumns)
	f.Element = tableValue(joinTable, valueRelated, valueKind, valueColumns)
	return c.AddField(f)
}

func joinKey(t *Table, names []string, pks []*Column) *ForeignKey {
	cols := make([]*Column, len(names))
	for i, n := range names {
		kind := types.KindUnknown
		if i < len(pks) {
			kind = pks[i].Kind
		}
		cols[i] = t.AddColumn(n, kind)
	}
	fk, err := NewForeignKey(cols, pks)
	if err != nil {
		panic(err)
	}
	return fk
}

func tableValue(t *Table, related *ClassMapping, kind types.Kind, names []string) ValueMapping {
	if related == nil {
		cols := make([]*Column, len(names))
		for i, n := range names {
			cols[i] = t.AddColumn(n, kind)
		}
		return ValueMapping{Kind: kind, Columns: cols}
	}
	fk := joinKey(t, names, related.PrimaryKeyColumns())
	return ValueMapping{
		Kind:       types.KindObject,
		Columns:    fk.Columns,
		Related:    related,
		ForeignKey: fk,
	}
}
