package yamlquery

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

var aggregates = map[string]func(q.Value) q.AggregateNode{
	"count":          q.Count,
	"count_distinct": q.CountDistinct,
	"sum":            q.Sum,
	"avg":            q.Avg,
	"min":            q.Min,
	"max":            q.Max,
}

var unary = map[string]func(q.Value) q.FuncNode{
	"neg":    q.Neg,
	"abs":    q.Abs,
	"sqrt":   q.Sqrt,
	"lower":  q.Lower,
	"upper":  q.Upper,
	"length": q.Length,
}

var arithmetic = map[string]func(q.Value, q.Value) q.ArithNode{
	"add": q.Add,
	"sub": q.Sub,
	"mul": q.Mul,
	"div": q.Div,
	"mod": q.Mod,
}

var trimSpecs = map[string]q.TrimSpec{
	"":         q.TrimBoth,
	"both":     q.TrimBoth,
	"leading":  q.TrimLeading,
	"trailing": q.TrimTrailing,
}

var currents = map[string]q.Current{
	"date":      q.CurrentDate,
	"time":      q.CurrentTime,
	"timestamp": q.CurrentTimestamp,
}

func (d *decoder) literal(n *yaml.Node) q.Value {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return q.Null()
	}
	var v any
	if err := n.Decode(&v); err != nil {
		d.fail(n, "literal: %v", err)
		return q.Null()
	}
	return q.Lit(v)
}

func (d *decoder) value(n *yaml.Node) q.Value {
	if n.Kind == yaml.ScalarNode || n.Kind == yaml.SequenceNode {
		return d.literal(n)
	}
	op, arg, ok := d.operator(n)
	if !ok {
		return nil
	}
	if fn, ok := aggregates[op]; ok {
		return fn(d.value(arg))
	}
	if fn, ok := unary[op]; ok {
		return fn(d.value(arg))
	}
	if fn, ok := arithmetic[op]; ok {
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		return fn(d.value(args[0]), d.value(args[1]))
	}
	switch op {
	case "path":
		return d.path(arg)
	case "lit":
		return d.literal(arg)
	case "null":
		return q.Null()
	case "param":
		return q.Param(d.scalar(arg))
	case "positional":
		pos, err := strconv.Atoi(d.scalar(arg))
		if err != nil || pos < 1 {
			d.fail(arg, "positional parameters are numbered from 1")
			return nil
		}
		return q.Positional(pos)
	case "concat":
		args, ok := d.args(op, arg, 2, 0)
		if !ok {
			return nil
		}
		vs := d.values(args)
		return q.Concat(vs[0], vs[1], vs[2:]...)
	case "substring":
		args, ok := d.args(op, arg, 2, 3)
		if !ok {
			return nil
		}
		vs := d.values(args)
		if len(vs) == 3 {
			return q.SubstringFor(vs[0], vs[1], vs[2])
		}
		return q.Substring(vs[0], vs[1])
	case "index_of":
		args, ok := d.args(op, arg, 2, 3)
		if !ok {
			return nil
		}
		vs := d.values(args)
		if len(vs) == 3 {
			return q.IndexOfFrom(vs[0], vs[1], vs[2])
		}
		return q.IndexOf(vs[0], vs[1])
	case "trim":
		return d.trim(arg)
	case "coalesce":
		args, ok := d.args(op, arg, 1, 0)
		if !ok {
			return nil
		}
		return q.Coalesce(d.values(args)...)
	case "nullif":
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		return q.NullIf(d.value(args[0]), d.value(args[1]))
	case "case":
		return d.caseValue(arg)
	case "type_of":
		return q.TypeOf(d.path(arg))
	case "type":
		return q.Type(d.scalar(arg))
	case "size":
		return q.Size(d.path(arg))
	case "now":
		what, ok := currents[d.scalar(arg)]
		if !ok {
			d.fail(arg, "now takes date, time or timestamp")
			return nil
		}
		return q.Now(what)
	case "cast":
		f := d.fields(arg, "value", "as")
		name := d.scalar(d.required(arg, f, "as"))
		kind, ok := types.ParseKind(name)
		if !ok {
			d.fail(arg, "unknown kind %q", name)
		}
		return q.Cast(d.value(d.required(arg, f, "value")), kind)
	case "subquery":
		return q.SubQuery(d.subquery(arg))
	}
	d.fail(n, "unknown value operator %q", op)
	return nil
}

func (d *decoder) values(ns []*yaml.Node) []q.Value {
	out := make([]q.Value, len(ns))
	for i, n := range ns {
		out[i] = d.value(n)
	}
	return out
}

func (d *decoder) trim(n *yaml.Node) q.Value {
	f := d.fields(n, "value", "spec", "char")
	spec := ""
	if s, ok := f["spec"]; ok {
		spec = d.scalar(s)
	}
	ts, ok := trimSpecs[spec]
	if !ok {
		d.fail(n, "unknown trim spec %q", spec)
	}
	var char q.Value
	if c, ok := f["char"]; ok {
		char = d.value(c)
	}
	return q.Trim(d.value(d.required(n, f, "value")), ts, char)
}

// caseValue reads {value?, when: [{if|match, then}], else}. With a value
// the branches match against it, otherwise they test conditions.
func (d *decoder) caseValue(n *yaml.Node) q.Value {
	f := d.fields(n, "value", "when", "else")
	var otherwise q.Value = q.Null()
	if e, ok := f["else"]; ok {
		otherwise = d.value(e)
	}
	operand, simple := f["value"]
	whensNode := d.required(n, f, "when")
	if whensNode.Kind != yaml.SequenceNode || len(whensNode.Content) == 0 {
		d.fail(whensNode, "case needs at least one when branch")
		return nil
	}
	whens := make([]q.When, 0, len(whensNode.Content))
	for _, wn := range whensNode.Content {
		wf := d.fields(wn, "if", "match", "then")
		w := q.When{Result: d.value(d.required(wn, wf, "then"))}
		if simple {
			w.Match = d.value(d.required(wn, wf, "match"))
		} else {
			w.Cond = d.exp(d.required(wn, wf, "if"))
		}
		whens = append(whens, w)
	}
	if simple {
		return q.SimpleCase(d.value(operand), otherwise, whens...)
	}
	return q.SearchedCase(otherwise, whens...)
}

// path reads "root.field.field" or a mapping
// {of: "root.field", key: true, outer: true, treat: Class, xpath: element}.
// outer traverses the last field with an outer join.
func (d *decoder) path(n *yaml.Node) q.PathNode {
	if n.Kind == yaml.ScalarNode {
		return parsePath(n.Value, false)
	}
	f := d.fields(n, "of", "key", "outer", "treat", "xpath", "var")
	p := parsePath(d.scalar(d.required(n, f, "of")), d.flag(f, "outer"))
	if d.flag(f, "key") {
		p = p.Key()
	}
	if v, ok := f["var"]; ok {
		p = p.Var(d.scalar(v))
	}
	if t, ok := f["treat"]; ok {
		p = p.Treat(d.scalar(t))
	}
	if x, ok := f["xpath"]; ok {
		p = p.XPath(d.scalar(x))
	}
	return p
}

func (d *decoder) flag(f map[string]*yaml.Node, name string) bool {
	n, ok := f[name]
	if !ok {
		return false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		d.fail(n, "%s must be a boolean", name)
	}
	return b
}

func parsePath(s string, outer bool) q.PathNode {
	parts := strings.Split(s, ".")
	p := q.Path(parts[0])
	for i, f := range parts[1:] {
		if outer && i == len(parts)-2 {
			p = p.GetOuter(f)
		} else {
			p = p.Get(f)
		}
	}
	return p
}
