// Package yamlquery reads object queries written as YAML documents.
//
// Every value and condition is a mapping with a single operator key:
//
//	select: Order
//	as: o
//	where:
//	  and:
//	    - eq: [{path: o.status}, {param: status}]
//	    - gt: [{path: o.total}, 100]
//	project: [{path: o.customer.name}, {count: {path: o}}]
//	group_by: [{path: o.customer.name}]
//	order_by: [{desc: {count: {path: o}}}]
//
// Bare scalars are literals and sequences are literal lists.
package yamlquery

import (
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
)

var ErrInvalidQuery = errors.New("yamlquery: invalid query")

type document struct {
	Select   string      `yaml:"select"`
	As       string      `yaml:"as"`
	Over     yaml.Node   `yaml:"over"`
	Declare  []variable  `yaml:"declare"`
	Where    yaml.Node   `yaml:"where"`
	Project  []yaml.Node `yaml:"project"`
	GroupBy  []yaml.Node `yaml:"group_by"`
	Having   yaml.Node   `yaml:"having"`
	OrderBy  []yaml.Node `yaml:"order_by"`
	Distinct bool        `yaml:"distinct"`
}

type variable struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
}

// Decode reads one query document. All problems found are reported
// together.
func Decode(r io.Reader) (q.Query, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return q.Query{}, errors.Wrap(err, "unable to decode query document")
	}
	d := &decoder{}
	query := d.query(&doc)
	if err := d.errs.ErrorOrNil(); err != nil {
		return q.Query{}, err
	}
	return query, nil
}

type decoder struct {
	errs *multierror.Error
}

func (d *decoder) fail(n *yaml.Node, format string, args ...any) {
	d.errs = multierror.Append(d.errs, errors.Wrapf(ErrInvalidQuery, "line %d: "+format, append([]any{n.Line}, args...)...))
}

func present(n *yaml.Node) bool {
	return n.Kind != 0
}

func (d *decoder) query(doc *document) q.Query {
	query := q.Select(doc.Select, doc.As)
	if present(&doc.Over) {
		query = query.Over(d.path(&doc.Over))
	}
	for _, v := range doc.Declare {
		query = query.Declare(v.Name, v.Class)
	}
	if present(&doc.Where) {
		query = query.Where(d.exp(&doc.Where))
	}
	for i := range doc.Project {
		query = query.Project(d.value(&doc.Project[i]))
	}
	for i := range doc.GroupBy {
		query = query.GroupBy(d.value(&doc.GroupBy[i]))
	}
	if present(&doc.Having) {
		query = query.HavingCond(d.exp(&doc.Having))
	}
	for i := range doc.OrderBy {
		query = query.OrderBy(d.order(&doc.OrderBy[i]))
	}
	if doc.Distinct {
		query = query.Unique()
	}
	return query
}

func (d *decoder) subquery(n *yaml.Node) q.Query {
	var doc document
	if err := n.Decode(&doc); err != nil {
		d.fail(n, "subquery: %v", err)
		return q.Query{}
	}
	return d.query(&doc)
}

func (d *decoder) order(n *yaml.Node) q.Order {
	op, arg, ok := d.operator(n)
	if !ok {
		return q.Order{}
	}
	switch op {
	case "asc":
		return q.Asc(d.value(arg))
	case "desc":
		return q.Desc(d.value(arg))
	}
	d.fail(n, "unknown ordering %q", op)
	return q.Order{}
}

// operator splits a single key mapping.
func (d *decoder) operator(n *yaml.Node) (string, *yaml.Node, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		d.fail(n, "expected a mapping with one operator key")
		return "", nil, false
	}
	return n.Content[0].Value, n.Content[1], true
}

// args returns the elements of a sequence holding between min and max
// items.
func (d *decoder) args(op string, n *yaml.Node, min, max int) ([]*yaml.Node, bool) {
	if n.Kind != yaml.SequenceNode || len(n.Content) < min || (max > 0 && len(n.Content) > max) {
		if min == max {
			d.fail(n, "%s takes %d arguments", op, min)
		} else {
			d.fail(n, "%s takes at least %d arguments", op, min)
		}
		return nil, false
	}
	return n.Content, true
}

func (d *decoder) scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode {
		d.fail(n, "expected a scalar")
		return ""
	}
	return n.Value
}

// fields decodes a mapping of named operands.
func (d *decoder) fields(n *yaml.Node, names ...string) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node)
	if n.Kind != yaml.MappingNode {
		d.fail(n, "expected a mapping")
		return out
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		known := false
		for _, name := range names {
			known = known || name == key
		}
		if !known {
			d.fail(n.Content[i], "unknown key %q", key)
			continue
		}
		out[key] = n.Content[i+1]
	}
	return out
}

func (d *decoder) required(n *yaml.Node, f map[string]*yaml.Node, name string) *yaml.Node {
	v, ok := f[name]
	if !ok {
		d.fail(n, "missing %q", name)
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
	}
	return v
}
