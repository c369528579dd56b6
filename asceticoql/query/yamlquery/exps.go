package yamlquery

import (
	"gopkg.in/yaml.v3"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
)

var comparisons = map[string]func(q.Value, q.Value) q.CompareNode{
	"eq": q.Equal,
	"ne": q.NotEqual,
	"gt": q.GreaterThan,
	"ge": q.GreaterThanEqual,
	"lt": q.LessThan,
	"le": q.LessThanEqual,
}

func (d *decoder) exp(n *yaml.Node) q.Exp {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!bool" {
		var b bool
		if err := n.Decode(&b); err != nil {
			d.fail(n, "%v", err)
		}
		if b {
			return q.True()
		}
		return q.False()
	}
	op, arg, ok := d.operator(n)
	if !ok {
		return nil
	}
	if fn, ok := comparisons[op]; ok {
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		return fn(d.value(args[0]), d.value(args[1]))
	}
	switch op {
	case "and", "or":
		args, ok := d.args(op, arg, 1, 0)
		if !ok {
			return nil
		}
		exps := make([]q.Exp, len(args))
		for i, a := range args {
			exps[i] = d.exp(a)
		}
		if len(exps) == 1 {
			return exps[0]
		}
		if op == "and" {
			return q.And(exps[0], exps[1:]...)
		}
		return q.Or(exps[0], exps[1:]...)
	case "not":
		return q.Not(d.exp(arg))
	case "is_null":
		return q.IsNull(d.value(arg))
	case "is_not_null":
		return q.IsNotNull(d.value(arg))
	case "contains", "contains_key":
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		if op == "contains_key" {
			return q.ContainsKey(d.path(args[0]), d.value(args[1]))
		}
		return q.Contains(d.path(args[0]), d.value(args[1]))
	case "bind":
		f := d.fields(arg, "var", "to")
		return q.BindVariable(d.scalar(d.required(arg, f, "var")), d.path(d.required(arg, f, "to")))
	case "in", "not_in":
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		if op == "not_in" {
			return q.NotIn(d.value(args[0]), d.value(args[1]))
		}
		return q.In(d.value(args[0]), d.value(args[1]))
	case "in_query", "not_in_query":
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		if op == "not_in_query" {
			return q.NotInSubQuery(d.value(args[0]), d.subquery(args[1]))
		}
		return q.InSubQuery(d.value(args[0]), d.subquery(args[1]))
	case "exists":
		return q.Exists(d.subquery(arg))
	case "not_exists":
		return q.NotExists(d.subquery(arg))
	case "instance_of", "not_instance_of":
		args, ok := d.args(op, arg, 2, 2)
		if !ok {
			return nil
		}
		if op == "not_instance_of" {
			return q.NotInstanceOf(d.path(args[0]), d.scalar(args[1]))
		}
		return q.InstanceOf(d.path(args[0]), d.scalar(args[1]))
	case "like", "not_like":
		return d.like(op, arg)
	case "is_empty":
		return q.IsEmpty(d.path(arg))
	case "is_not_empty":
		return q.IsNotEmpty(d.path(arg))
	case "holds":
		return q.Holds(d.value(arg))
	}
	d.fail(n, "unknown condition operator %q", op)
	return nil
}

// like reads {value, pattern, escape?, ignore_case?}.
func (d *decoder) like(op string, n *yaml.Node) q.Exp {
	f := d.fields(n, "value", "pattern", "escape", "ignore_case")
	value := d.value(d.required(n, f, "value"))
	pattern := d.value(d.required(n, f, "pattern"))
	node := q.Like(value, pattern)
	if op == "not_like" {
		node = q.NotLike(value, pattern)
	}
	if e, ok := f["escape"]; ok {
		node = node.Escape(d.scalar(e))
	}
	if d.flag(f, "ignore_case") {
		node = node.IgnoreCase()
	}
	return node
}
