// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"
	"fmt"
)

// Tx represents a database transaction.
// It is unsafe to be used concurrently. A transaction may be used
// in order to execute one or more SQL statements one at a time.
// For statement execution methods, see the Queryer interface.
// All statements which are in a single transaction observe the
// ACID properties. Whether DDL statements are covered by transactions
// depends on the backend, as reported by Dialect.SupportsDDLTransactions.
// Migrations which are grouped together run in one Tx, so they are
// rolled back together if the backend supports transactional DDL.
type Tx interface {
	Queryer

	// IsTx method prevents a non-Tx object (such as a Conn) to
	// mistakenly implement the Tx interface.
	IsTx()
}

// InTx runs h in a new transaction if q is a Conn. Otherwise, q is
// already a transaction (such as a Tx which holds a table lock), so h
// runs within it.
func InTx(ctx context.Context, q Queryer, h TxHandler) error {
	switch q := q.(type) {
	case Tx:
		return h(ctx, q)
	case Conn:
		return q.Tx(ctx, h)
	}
	return fmt.Errorf("%T is neither a connection nor a transaction", q)
}
