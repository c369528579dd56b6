package session

// RowsAffected is the Result of a statement that reports only its row
// count.
type RowsAffected int64

func (r RowsAffected) RowsAffected() (int64, error) {
	return int64(r), nil
}
