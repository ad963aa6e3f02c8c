package repositories

import (
	"context"

	"github.com/finbase/payment-ledger/internal/core/domain"
)

// TransactionReader defines read operations for ledger entries.
type TransactionReader interface {
	// FindByChargeID retrieves the payment entry posted for a charge id.
	// Returns apperrors.ErrNotFound when no such entry exists.
	FindByChargeID(ctx context.Context, chargeID string) (*domain.Transaction, error)

	// FindByRefundID retrieves the refund entry posted for a refund id.
	// Returns apperrors.ErrNotFound when no such entry exists.
	FindByRefundID(ctx context.Context, refundID string) (*domain.Transaction, error)

	// FindBalancePairsForPayment retrieves the original (non-reversal)
	// balance-transfer pairs tied to a payment entry, grouped by correlation
	// key and ordered by creation time. Ordering is a correctness
	// requirement: proportional splitting pairs groups by creation order.
	FindBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error)

	// FindUnreversedBalancePairsForPayment retrieves the subset of the
	// payment's balance-transfer pairs that no reversal entry points at yet,
	// ordered by creation time.
	FindUnreversedBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error)

	// FindReversalPairsForPayment retrieves the reversal pairs whose entries
	// point into the payment's balance groups and are not themselves
	// reversed yet, ordered by creation time.
	FindReversalPairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error)
}

// TransactionWriter defines write operations for ledger entries.
// Entries are append-only; there are no update or delete operations.
type TransactionWriter interface {
	// SaveTransaction persists one entry together with its incurred fee
	// children as a single atomic unit. A uniqueness violation on an
	// idempotency key surfaces as an error wrapping apperrors.ErrDuplicateKey
	// with nothing committed.
	SaveTransaction(ctx context.Context, txn domain.Transaction) error

	// SaveTransactions persists a set of entries (and their fee children)
	// all-or-nothing. Readers must never observe a partial posting.
	SaveTransactions(ctx context.Context, txns []domain.Transaction) error
}

// TransactionRepositoryFacade combines all ledger-entry repository
// interfaces for clients that need full access.
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}
