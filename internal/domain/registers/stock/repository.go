package stock

import (
	"context"
	"time"

	"roastledger/internal/core/id"
	"roastledger/internal/core/types"
	"roastledger/internal/domain/bean"
)

// Repository defines storage operations for the stock register.
type Repository interface {
	// Balance operations

	// UpsertBalance adds delta to a bean's balance, inserting a zero-based
	// row for beans seen for the first time. Must run inside a transaction.
	UpsertBalance(ctx context.Context, b bean.Bean, delta types.Quantity) error

	// GetBalance returns the current balance for a bean; zero for beans
	// that have never moved.
	GetBalance(ctx context.Context, b bean.Bean) (types.Quantity, error)

	// GetBalanceForUpdate returns the balance with a row lock.
	GetBalanceForUpdate(ctx context.Context, b bean.Bean) (types.Quantity, error)

	// ListBalances returns all balances, optionally excluding zero rows.
	ListBalances(ctx context.Context, excludeZero bool) ([]Balance, error)

	// Ledger operations

	// AppendTransaction inserts one ledger row. The ledger is append-only.
	AppendTransaction(ctx context.Context, t *Transaction) error

	// ListTransactions returns ledger rows for a bean, newest first.
	ListTransactions(ctx context.Context, b bean.Bean, filter TransactionFilter) ([]Transaction, error)

	// ListTransactionsByRef returns ledger rows produced by one document.
	ListTransactionsByRef(ctx context.Context, refID id.ID) ([]Transaction, error)

	// SumDeltasByBean returns the ledger sum per bean, for the
	// consistency check against materialized balances.
	SumDeltasByBean(ctx context.Context) (map[bean.Bean]types.Quantity, error)
}

// TransactionFilter narrows ledger history queries.
type TransactionFilter struct {
	Type     *EntryType
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
