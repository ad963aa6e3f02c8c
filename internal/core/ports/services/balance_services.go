package services

import (
	"context"
	"time"

	"github.com/finbase/payment-ledger/internal/core/domain"
)

// CreateBalanceParams describes one transfer of funds from the platform to a
// destination account (or back, for negative flows between platform
// accounts).
type CreateBalanceParams struct {
	SourceAccountID      *string
	DestinationAccountID *string
	Amount               int64
	Currency             string

	// Account-side conversion, applied to the incoming half only. When
	// AccountCurrency is empty the account side mirrors Currency/Amount.
	AccountCurrency string
	AccountAmount   int64

	PaymentTransaction *domain.Transaction
	TransferID         string
	CorrelationKey     string
	OrderID            *string
}

// BalanceSvcFacade creates matched outgoing/incoming entry pairs and their
// reversals.
type BalanceSvcFacade interface {
	// CreateBalance persists a new balance-transfer pair atomically: one
	// outgoing entry (negative, no account) and one incoming entry
	// (positive, destination account), sharing the correlation key and
	// transfer id.
	CreateBalance(ctx context.Context, params CreateBalanceParams) (domain.BalancePair, error)

	// CreateReversalBalance persists a pair negating the given pair for the
	// given magnitude, which may be less than the pair's full magnitude.
	CreateReversalBalance(ctx context.Context, pair domain.BalancePair, amount int64) (domain.BalancePair, error)

	// BuildReversalBalance constructs the reversal pair without persisting
	// it, so callers can batch it with other entries into one atomic save.
	BuildReversalBalance(pair domain.BalancePair, amount int64, now time.Time) domain.BalancePair
}
