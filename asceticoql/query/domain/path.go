package query

import (
	"slices"
	"strings"
)

// Op is a traversal step recorded on a path.
type Op int

const (
	// OpGet traverses a field.
	OpGet Op = iota
	// OpGetOuter traverses a field with outer joins from here on.
	OpGetOuter
	// OpGetKey traverses a map field through its key.
	OpGetKey
	// OpVar scopes the preceding collection traversal to a variable.
	OpVar
	// OpSubquery roots the path at a subquery candidate.
	OpSubquery
	// OpUnboundVar cross joins a variable that no contains test binds.
	OpUnboundVar
	// OpCast narrows the path to a subclass.
	OpCast
	// OpGetXPath steps into an XML document field.
	OpGetXPath
)

var opNames = [...]string{"get", "get outer", "get key", "var", "subquery", "unbound var", "cast", "xpath"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// IsFieldStep reports whether the step traverses a field.
func (o Op) IsFieldStep() bool {
	return o == OpGet || o == OpGetOuter || o == OpGetKey
}

// Action is one recorded step. Name holds the field, variable, XML
// element or subquery alias; Class the class of casts and unbound
// variables.
type Action struct {
	Op    Op
	Name  string
	Class string
}

// Path returns a navigation rooted at the query alias, subquery alias or
// variable named root, traversing fields in order.
func Path(root string, fields ...string) PathNode {
	p := PathNode{root: root}
	for _, f := range fields {
		p = p.Get(f)
	}
	return p
}

// UnboundVar returns a path rooted at a variable of class that is cross
// joined to the candidate rather than bound by a contains test.
func UnboundVar(name, class string) PathNode {
	return PathNode{
		root:    name,
		actions: []Action{{Op: OpUnboundVar, Name: name, Class: class}},
	}
}

// PathNode is immutable; every builder method returns a new path.
type PathNode struct {
	root    string
	actions []Action
}

func (p PathNode) with(a Action) PathNode {
	return PathNode{root: p.root, actions: append(slices.Clip(p.actions), a)}
}

func (p PathNode) Root() string {
	return p.root
}

func (p PathNode) Actions() []Action {
	return p.actions
}

func (p PathNode) Get(field string) PathNode {
	return p.with(Action{Op: OpGet, Name: field})
}

func (p PathNode) GetOuter(field string) PathNode {
	return p.with(Action{Op: OpGetOuter, Name: field})
}

// Key makes the last field traversal go through the map key.
func (p PathNode) Key() PathNode {
	for i := len(p.actions) - 1; i >= 0; i-- {
		if p.actions[i].Op == OpGet || p.actions[i].Op == OpGetOuter {
			actions := slices.Clone(p.actions)
			actions[i].Op = OpGetKey
			return PathNode{root: p.root, actions: actions}
		}
	}
	return p.with(Action{Op: OpGetKey})
}

// Var scopes the last collection traversal to the variable name.
func (p PathNode) Var(name string) PathNode {
	return p.with(Action{Op: OpVar, Name: name})
}

// Treat narrows the path to the subclass class.
func (p PathNode) Treat(class string) PathNode {
	return p.with(Action{Op: OpCast, Class: class})
}

// XPath steps into element of the XML document reached so far.
func (p PathNode) XPath(element string) PathNode {
	return p.with(Action{Op: OpGetXPath, Name: element})
}

// Subquery roots the path at the candidate of the subquery alias.
func (p PathNode) Subquery(alias string) PathNode {
	return p.with(Action{Op: OpSubquery, Name: alias})
}

// Append returns the path followed by actions.
func (p PathNode) Append(actions ...Action) PathNode {
	return PathNode{root: p.root, actions: append(slices.Clip(p.actions), actions...)}
}

// Last returns the last field step, if any.
func (p PathNode) Last() (Action, bool) {
	for i := len(p.actions) - 1; i >= 0; i-- {
		if p.actions[i].Op.IsFieldStep() {
			return p.actions[i], true
		}
	}
	return Action{}, false
}

// EndsInVar reports whether the last step binds a variable.
func (p PathNode) EndsInVar() bool {
	if len(p.actions) == 0 {
		return false
	}
	op := p.actions[len(p.actions)-1].Op
	return op == OpVar || op == OpUnboundVar
}

func (p PathNode) String() string {
	var sb strings.Builder
	sb.WriteString(p.root)
	for _, a := range p.actions {
		switch a.Op {
		case OpGet, OpGetXPath:
			sb.WriteString("." + a.Name)
		case OpGetOuter:
			sb.WriteString(".(outer)" + a.Name)
		case OpGetKey:
			sb.WriteString(".key(" + a.Name + ")")
		case OpVar:
			sb.WriteString("[" + a.Name + "]")
		case OpSubquery:
			sb.WriteString("{" + a.Name + "}")
		case OpUnboundVar:
			sb.WriteString("<" + a.Class + ">")
		case OpCast:
			sb.WriteString(" as " + a.Class)
		}
	}
	return sb.String()
}

func (p PathNode) Accept(v Visitor) error {
	return v.VisitPath(p)
}

func (PathNode) isValue() {}
