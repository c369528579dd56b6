package main

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	query "github.com/krew-solutions/ascetic-oql/asceticoql/query/infrastructure"
	"github.com/krew-solutions/ascetic-oql/asceticoql/types"
)

// decodeParams reads a YAML mapping of parameter names to values. A
// mapping {class: C, id: [k1, k2]} is the id of an object of class C.
func decodeParams(r io.Reader) (query.Params, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "unable to decode parameters")
	}
	params := make(query.Params, len(raw))
	for k, v := range raw {
		pv, err := paramValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", k)
		}
		params[k] = pv
	}
	return params, nil
}

func paramValue(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		class, _ := x["class"].(string)
		if class == "" || len(x) != 2 {
			return nil, errors.New("object ids need exactly class and id")
		}
		switch id := x["id"].(type) {
		case []any:
			return types.ObjectID{Class: class, Values: id}, nil
		case nil:
			return nil, errors.New("object id without key values")
		default:
			return types.ObjectID{Class: class, Values: []any{id}}, nil
		}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ev, err := paramValue(e)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			out[i] = ev
		}
		return out, nil
	}
	return v, nil
}
