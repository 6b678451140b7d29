package repo

import "context"

type TxHandler func(context.Context, Tx) error

// Conn represents one database session. All statements of a migration
// run, including the schema history updates and locks, are executed on
// a single Conn.
type Conn interface {
	Queryer
	Tx(ctx context.Context, handler TxHandler) error
	IsConn()
}
