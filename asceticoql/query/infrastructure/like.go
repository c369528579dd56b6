package query

import (
	"strings"

	"github.com/krew-solutions/ascetic-oql/asceticoql/sql"
)

type likeExp struct {
	value, pattern value
	escape         string
	ignoreCase     bool
	not            bool
}

func (l *likeExp) initialize(sel *sql.Select, ctx *expContext, _ flags) (*expState, error) {
	vst, err := l.value.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	pst, err := l.pattern.initialize(sel, ctx, 0)
	if err != nil {
		return nil, err
	}
	st := newState(l, ctx, sel.And(vst.joins, pst.joins))
	st.children = []*expState{vst, pst}
	return st, nil
}

func (l *likeExp) appendTo(sel *sql.Select, ctx *expContext, st *expState, buf *sql.Buffer) error {
	if err := check(l, ctx, st); err != nil {
		return err
	}
	vst, pst := st.child(0), st.child(1)
	vb, err := render(sel, ctx, l.value, vst, l.pattern, pst)
	if err != nil {
		return err
	}
	pb, err := render(sel, ctx, l.pattern, pst, l.value, vst)
	if err != nil {
		return err
	}
	op := "LIKE"
	if l.ignoreCase {
		if native := ctx.dialect.CaseInsensitiveLike(); native != "" {
			op = native
		} else {
			vb = sql.NewBuffer().Append("LOWER(").AppendBuffer(vb).Append(")")
			pb = sql.NewBuffer().Append("LOWER(").AppendBuffer(pb).Append(")")
		}
	}
	if l.not {
		op = "NOT " + op
	}
	buf.AppendBuffer(vb).Append(" " + op + " ").AppendBuffer(pb)
	if l.escape != "" {
		buf.Append(" ESCAPE '" + strings.ReplaceAll(l.escape, "'", "''") + "'")
	}
	return nil
}
