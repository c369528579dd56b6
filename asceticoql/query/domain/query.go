package query

// Order is one ORDER BY key.
type Order struct {
	Value     Value
	Ascending bool
}

func Asc(v Value) Order {
	return Order{Value: v, Ascending: true}
}

func Desc(v Value) Order {
	return Order{Value: v}
}

// Variable declares a query variable and its class. Variables bound by a
// BindVariable test navigate from the collection element; the others are
// cross joined to the candidate.
type Variable struct {
	Name  string
	Class string
}

// Query is a parsed object query. An empty Projections selects the
// candidate objects.
type Query struct {
	Candidate string
	Alias     string
	// From roots a subquery at a collection reached from an enclosing
	// query, as in "SELECT o FROM c.orders o".
	From        *PathNode
	Variables   []Variable
	Filter      Exp
	Projections []Value
	Grouping    []Value
	Having      Exp
	Ordering    []Order
	Distinct    bool
}

// Select starts a query over candidate named alias.
func Select(candidate, alias string) Query {
	return Query{Candidate: candidate, Alias: alias}
}

// Where returns the query with filter ANDed to the current filter.
func (q Query) Where(filter Exp) Query {
	if q.Filter != nil {
		filter = And(q.Filter, filter)
	}
	q.Filter = filter
	return q
}

func (q Query) Project(values ...Value) Query {
	q.Projections = append(append([]Value(nil), q.Projections...), values...)
	return q
}

func (q Query) GroupBy(values ...Value) Query {
	q.Grouping = append(append([]Value(nil), q.Grouping...), values...)
	return q
}

func (q Query) HavingCond(having Exp) Query {
	q.Having = having
	return q
}

func (q Query) OrderBy(orders ...Order) Query {
	q.Ordering = append(append([]Order(nil), q.Ordering...), orders...)
	return q
}

func (q Query) Declare(name, class string) Query {
	q.Variables = append(append([]Variable(nil), q.Variables...), Variable{Name: name, Class: class})
	return q
}

// Over roots the query at the collection at path.
func (q Query) Over(path PathNode) Query {
	q.From = &path
	return q
}

func (q Query) Unique() Query {
	q.Distinct = true
	return q
}

// Variable returns the declaration of name.
func (q Query) Variable(name string) (Variable, bool) {
	for _, v := range q.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
