package services

import (
	"context"

	"github.com/finbase/payment-ledger/internal/core/domain"
	"github.com/finbase/payment-ledger/internal/dto"
)

// ProcessorClient wraps the external lookups the ledger core depends on.
// Live retrieval from the payment processor is out of scope; callers inject
// an implementation.
type ProcessorClient interface {
	GetInvoice(ctx context.Context, invoiceID string) (*dto.Invoice, error)
	GetBalanceTransaction(ctx context.Context, balanceTransactionID string) (*dto.BalanceTransaction, error)
	GetPledgeByPaymentIntent(ctx context.Context, paymentIntentID string) (*dto.Pledge, error)
}

// PaymentFeeParams carries the context needed to compute payment fee entries.
type PaymentFeeParams struct {
	PaymentTransaction   *domain.Transaction
	BalanceTransactionID string
}

// RefundFeeParams carries the context needed to compute refund fee entries.
type RefundFeeParams struct {
	RefundTransaction    *domain.Transaction
	BalanceTransactionID string
}

// ProcessorFeeSvcFacade produces child fee entries to attach to a payment or
// refund entry. The ledger core treats the returned entries as opaque; fee
// policy lives with the implementation.
type ProcessorFeeSvcFacade interface {
	CreatePaymentFees(ctx context.Context, params PaymentFeeParams) ([]domain.Transaction, error)
	CreateRefundFees(ctx context.Context, params RefundFeeParams) ([]domain.Transaction, error)
}

// EventPublisher emits a notification after an entry has been durably
// posted. Implementations must be safe for concurrent use.
type EventPublisher interface {
	PublishEntryPosted(ctx context.Context, txn domain.Transaction) error
}
