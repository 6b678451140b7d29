package repo

import "context"

// Queryer is the statement execution collaborator. Both connections
// and transactions implement it, so statements and schema history
// queries can run with or without an explicit transaction.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (count int64, err error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

type Rows interface {
	Close()
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
	Values() ([]any, error)
}
