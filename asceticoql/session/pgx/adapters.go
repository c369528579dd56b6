package pgx

import (
	"database/sql/driver"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// rowsAdapter adapts pgx.Rows to session.Rows
type rowsAdapter struct {
	rows pgx.Rows
}

func (r *rowsAdapter) Close() error {
	r.rows.Close()
	return nil
}

func (r *rowsAdapter) Err() error {
	return r.rows.Err()
}

func (r *rowsAdapter) Next() bool {
	return r.rows.Next()
}

func (r *rowsAdapter) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return err
	}
	return unwrapValues(dest)
}

// unwrapValues replaces pgtype values scanned into *any, such as
// pgtype.Numeric, with their driver values.
func unwrapValues(dest []any) error {
	for _, d := range dest {
		p, ok := d.(*any)
		if !ok {
			continue
		}
		valuer, ok := (*p).(driver.Valuer)
		if !ok {
			continue
		}
		v, err := valuer.Value()
		if err != nil {
			return errors.Wrap(err, "unable to read column value")
		}
		*p = v
	}
	return nil
}

// rowAdapter adapts pgx.Row to session.Row
type rowAdapter struct {
	row pgx.Row
	err error
}

func (r *rowAdapter) Err() error {
	return r.err
}

func (r *rowAdapter) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if r.err == nil {
		r.err = err
	}
	return err
}
