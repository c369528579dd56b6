package query

import (
	"github.com/pkg/errors"

	q "github.com/krew-solutions/ascetic-oql/asceticoql/query/domain"
	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// Params holds query parameter values by name, or by decimal position for
// positional parameters.
type Params map[string]any

// Result is a compiled statement.
type Result struct {
	SQL string
	// Columns is the width of the rows SQL returns.
	Columns int
	// Params are the placeholders of SQL in order.
	Params []sql.Param
	Joins  []sql.Join
	// Extent reports that the statement selects every candidate instance
	// without condition.
	Extent   bool
	Distinct bool
	// Kinds holds the kind of every projection.
	Kinds   []types.Kind
	loaders []loader
}

// Args returns the values to bind to the placeholders of SQL. params may
// differ from the values seen at compile time as long as the shape of the
// statement stays the same: same NULL parameters and collection sizes.
func (r *Result) Args(params Params) ([]any, error) {
	args := make([]any, len(r.Params))
	for i, p := range r.Params {
		v := p.Value
		if p.Ref != nil {
			var err error
			if v, err = resolveRef(*p.Ref, params); err != nil {
				return nil, err
			}
		}
		if p.Column != nil && v != nil {
			cv, err := types.Coerce(v, p.Column.Kind)
			if err != nil {
				return nil, q.WrapUser(err, "cannot bind "+refName(p)+" to "+p.Column.String())
			}
			v = cv
		}
		args[i] = v
	}
	return args, nil
}

func refName(p sql.Param) string {
	if p.Ref == nil {
		return "literal"
	}
	return p.Ref.String()
}

func resolveRef(ref sql.ParamRef, params Params) (any, error) {
	v, ok := params[ref.Key]
	if !ok {
		return nil, q.WrapUser(q.ErrMissingParam, ref.String())
	}
	if ref.Element >= 0 {
		elems, ok := types.Elements(v)
		if !ok {
			return nil, q.UserErrorf("parameter %s is not a collection", ref.Key)
		}
		if ref.Element >= len(elems) {
			return nil, q.UserErrorf("parameter %s has %d elements, %d expected", ref.Key, len(elems), ref.Element+1)
		}
		v = elems[ref.Element]
	}
	if ref.Component >= 0 {
		id, ok := v.(types.ObjectID)
		if !ok {
			return nil, q.UserErrorf("parameter %s is not an object id", ref)
		}
		if ref.Component >= len(id.Values) {
			return nil, q.UserErrorf("object id %s has %d key values, %d expected", ref, len(id.Values), ref.Component+1)
		}
		v = id.Values[ref.Component]
	}
	return v, nil
}

// Load decodes one row of the statement into one value per projection.
// A query without projections yields the candidate object id.
func (r *Result) Load(row []any) ([]any, error) {
	out := make([]any, len(r.loaders))
	for i, ld := range r.loaders {
		v, err := ld(row)
		if err != nil {
			return nil, errors.Wrapf(err, "projection %d", i)
		}
		out[i] = v
	}
	return out, nil
}
