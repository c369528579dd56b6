package mapping

import (
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

type FieldKind int

const (
	FieldBasic FieldKind = iota
	FieldRelation
	FieldCollection
	FieldMap
	FieldXML
)

func (k FieldKind) String() string {
	switch k {
	case FieldRelation:
		return "relation"
	case FieldCollection:
		return "collection"
	case FieldMap:
		return "map"
	case FieldXML:
		return "xml"
	}
	return "basic"
}

// ValueMapping maps a field value, collection element or map key.
type ValueMapping struct {
	Kind    types.Kind
	Columns []*Column
	// Related is set when the value is a persistent object.
	Related *ClassMapping
	// ForeignKey joins Columns to Related's primary key. Nil for inverse
	// relations.
	ForeignKey *ForeignKey
	// MappedBy names the field of Related owning the foreign key.
	MappedBy string
}

func (v ValueMapping) IsRelation() bool {
	return v.Related != nil
}

// IsForward reports whether the value joins through its own foreign key.
func (v ValueMapping) IsForward() bool {
	return v.ForeignKey != nil
}

// InverseForeignKey returns the foreign key on Related pointing back at the
// owner, or nil.
func (v ValueMapping) InverseForeignKey() *ForeignKey {
	if v.Related == nil || v.MappedBy == "" {
		return nil
	}
	owner := v.Related.Field(v.MappedBy)
	if owner == nil {
		return nil
	}
	return owner.Value.ForeignKey
}

// FieldMapping maps one persistent field.
type FieldMapping struct {
	Name  string
	Owner *ClassMapping
	Kind  FieldKind
	// Value maps basic, relation and xml fields.
	Value ValueMapping
	// Element maps collection elements and map values.
	Element ValueMapping
	// Key maps map keys.
	Key ValueMapping
	// JoinTable holds collection elements or map entries. Nil for inverse
	// collections whose element table holds the foreign key.
	JoinTable *Table
	// JoinForeignKey joins JoinTable to the owner's primary key.
	JoinForeignKey *ForeignKey
	Transient      bool
}

func (f *FieldMapping) String() string {
	if f.Owner == nil {
		return f.Name
	}
	return f.Owner.Name + "." + f.Name
}

// IsToMany reports whether traversing the field may multiply rows.
func (f *FieldMapping) IsToMany() bool {
	return f.Kind == FieldCollection || f.Kind == FieldMap
}

// ValueMapping returns the mapping reached by traversing the field: the
// element for collections and maps, the key when key is set, otherwise the
// field value itself.
func (f *FieldMapping) ValueMapping(key bool) ValueMapping {
	switch f.Kind {
	case FieldCollection:
		return f.Element
	case FieldMap:
		if key {
			return f.Key
		}
		return f.Element
	}
	return f.Value
}

// Columns returns the columns holding the field value: the foreign key
// columns for relations and the element columns for collections.
func (f *FieldMapping) Columns() []*Column {
	switch f.Kind {
	case FieldCollection, FieldMap:
		if len(f.Element.Columns) > 0 {
			return f.Element.Columns
		}
		if f.Element.Related != nil {
			return f.Element.Related.PrimaryKeyColumns()
		}
		return nil
	}
	if len(f.Value.Columns) == 0 && f.Value.Related != nil {
		return f.Value.Related.PrimaryKeyColumns()
	}
	return f.Value.Columns
}

// ElementForeignKey returns the foreign key joining the owner to the table
// holding the elements: the join table key, or for inverse collections the
// element class's key back to the owner.
func (f *FieldMapping) ElementForeignKey() *ForeignKey {
	if f.JoinTable != nil {
		return f.JoinForeignKey
	}
	return f.Element.InverseForeignKey()
}

// ElementTable returns the table holding collection elements.
func (f *FieldMapping) ElementTable() *Table {
	if f.JoinTable != nil {
		return f.JoinTable
	}
	if f.Element.Related != nil {
		return f.Element.Related.Table
	}
	return nil
}
