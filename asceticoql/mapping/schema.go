package mapping

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// Table is a relational table known to the mapping repository.
type Table struct {
	Name       string
	Schema     string
	PrimaryKey []*Column
	columns    []*Column
	byName     map[string]*Column
}

func NewTable(name string) *Table {
	return &Table{
		Name:   name,
		byName: make(map[string]*Column),
	}
}

// FullName returns the schema-qualified table name.
func (t *Table) FullName() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// AddColumn registers a column; adding an existing name returns the column
// already registered.
func (t *Table) AddColumn(name string, kind types.Kind) *Column {
	if c, ok := t.byName[name]; ok {
		return c
	}
	c := &Column{Table: t, Name: name, Kind: kind}
	t.columns = append(t.columns, c)
	t.byName[name] = c
	return c
}

// WithPrimaryKey marks the named columns, in order, as the primary key.
func (t *Table) WithPrimaryKey(names ...string) *Table {
	t.PrimaryKey = nil
	for _, n := range names {
		t.PrimaryKey = append(t.PrimaryKey, t.byName[n])
	}
	return t
}

func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

func (t *Table) Columns() []*Column {
	return t.columns
}

// Column is a single table column.
type Column struct {
	Table *Table
	Name  string
	Kind  types.Kind
}

func (c *Column) String() string {
	return c.Table.Name + "." + c.Name
}

// ForeignKey joins local columns to the primary key columns of another
// table. Columns and PrimaryKeyColumns are parallel.
type ForeignKey struct {
	Columns           []*Column
	PrimaryKeyColumns []*Column
}

func NewForeignKey(cols, pks []*Column) (*ForeignKey, error) {
	if len(cols) == 0 || len(cols) != len(pks) {
		return nil, errors.Wrapf(ErrInvalidForeignKey, "%d local columns, %d referenced columns", len(cols), len(pks))
	}
	for i := range cols {
		if cols[i] == nil || pks[i] == nil {
			return nil, errors.Wrap(ErrInvalidForeignKey, "nil column")
		}
	}
	return &ForeignKey{Columns: cols, PrimaryKeyColumns: pks}, nil
}

// MustForeignKey is NewForeignKey for static fixtures.
func MustForeignKey(cols, pks []*Column) *ForeignKey {
	fk, err := NewForeignKey(cols, pks)
	if err != nil {
		panic(err)
	}
	return fk
}

// Table returns the table holding the local columns.
func (fk *ForeignKey) Table() *Table {
	return fk.Columns[0].Table
}

// PrimaryKeyTable returns the referenced table.
func (fk *ForeignKey) PrimaryKeyTable() *Table {
	return fk.PrimaryKeyColumns[0].Table
}

// PrimaryKeyColumn returns the referenced column joined to the given local
// column, or nil.
func (fk *ForeignKey) PrimaryKeyColumn(local *Column) *Column {
	for i, c := range fk.Columns {
		if c == local {
			return fk.PrimaryKeyColumns[i]
		}
	}
	return nil
}
