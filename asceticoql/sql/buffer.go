package sql

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-oql/asceticoql/mapping"
)

// Placeholder marks a bound parameter in buffer text. Dialects rewrite it
// into their own placeholder syntax once the statement is complete.
const Placeholder = "?"

// ParamRef points a placeholder at an execution-time parameter.
type ParamRef struct {
	// Key is the parameter name, or its decimal position for positional
	// parameters.
	Key string
	// Element selects one element of a collection-valued parameter; -1 uses
	// the whole value.
	Element int
	// Component selects one column of a compound object id; -1 uses the
	// whole value.
	Component int
}

func NewParamRef(key string) ParamRef {
	return ParamRef{Key: key, Element: -1, Component: -1}
}

func (r ParamRef) WithElement(i int) ParamRef {
	r.Element = i
	return r
}

func (r ParamRef) WithComponent(i int) ParamRef {
	r.Component = i
	return r
}

func (r ParamRef) String() string {
	var sb strings.Builder
	if _, err := strconv.Atoi(r.Key); err == nil {
		sb.WriteString("?" + r.Key)
	} else {
		sb.WriteString(":" + r.Key)
	}
	if r.Element >= 0 {
		sb.WriteString("[" + strconv.Itoa(r.Element) + "]")
	}
	if r.Component >= 0 {
		sb.WriteString("." + strconv.Itoa(r.Component))
	}
	return sb.String()
}

// Param is one placeholder of a Buffer, in text order.
type Param struct {
	// Value is the compile-time value: the literal, or the parameter value
	// seen while compiling.
	Value any
	// Ref is nil for literals.
	Ref *ParamRef
	// Column is the column the value is compared with or stored into, if
	// known. It drives type conversion on bind.
	Column *mapping.Column
}

// Buffer accumulates SQL text and its parameters.
type Buffer struct {
	sb     strings.Builder
	params []Param
	// disjunction is set when the text is an unparenthesized OR.
	disjunction bool
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(s string) *Buffer {
	b.sb.WriteString(s)
	return b
}

// AppendValue binds a literal value.
func (b *Buffer) AppendValue(v any, col *mapping.Column) *Buffer {
	b.sb.WriteString(Placeholder)
	b.params = append(b.params, Param{Value: v, Column: col})
	return b
}

// AppendParam binds an execution-time parameter.
func (b *Buffer) AppendParam(ref ParamRef, v any, col *mapping.Column) *Buffer {
	b.sb.WriteString(Placeholder)
	b.params = append(b.params, Param{Value: v, Ref: &ref, Column: col})
	return b
}

// AppendColumn writes alias.column.
func (b *Buffer) AppendColumn(alias string, col *mapping.Column) *Buffer {
	if alias != "" {
		b.sb.WriteString(alias)
		b.sb.WriteByte('.')
	}
	b.sb.WriteString(col.Name)
	return b
}

// AppendBuffer appends the text and the parameters of o.
func (b *Buffer) AppendBuffer(o *Buffer) *Buffer {
	if o == nil {
		return b
	}
	b.sb.WriteString(o.sb.String())
	b.params = append(b.params, o.params...)
	return b
}

// AppendTemplate expands a template whose {n} markers refer to args. An
// argument may appear several times or out of order; parameters follow the
// text.
func (b *Buffer) AppendTemplate(tmpl string, args ...*Buffer) error {
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '{' {
			b.sb.WriteByte(c)
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			return errors.Errorf("unterminated marker in template %q", tmpl)
		}
		n, err := strconv.Atoi(tmpl[i+1 : i+end])
		if err != nil {
			return errors.Wrapf(err, "bad marker in template %q", tmpl)
		}
		if n < 0 || n >= len(args) {
			return errors.Errorf("template %q refers to argument %d of %d", tmpl, n, len(args))
		}
		b.AppendBuffer(args[n])
		i += end
	}
	return nil
}

func (b *Buffer) IsEmpty() bool {
	return b.sb.Len() == 0
}

func (b *Buffer) String() string {
	return b.sb.String()
}

func (b *Buffer) Params() []Param {
	return b.params
}

// MarkDisjunction records that the text is an unparenthesized OR, which
// must be parenthesized when ANDed with other conditions.
func (b *Buffer) MarkDisjunction() *Buffer {
	b.disjunction = true
	return b
}

func (b *Buffer) IsDisjunction() bool {
	return b.disjunction
}

func (b *Buffer) Clone() *Buffer {
	c := &Buffer{params: append([]Param(nil), b.params...), disjunction: b.disjunction}
	c.sb.WriteString(b.sb.String())
	return c
}
