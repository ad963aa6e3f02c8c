package services

import (
	"context"

	"github.com/finbase/payment-ledger/internal/core/domain"
	"github.com/finbase/payment-ledger/internal/dto"
)

// RefundSvcFacade posts refund entries and unwinds them when the processor
// reports a refund cancellation.
type RefundSvcFacade interface {
	// Create validates the refund lifecycle state, reverses the payment's
	// balance-transfer groups proportionally in creation order, and posts a
	// refund entry, all atomically. Fails with apperrors.ErrNotSucceededRefund
	// or apperrors.ErrRefundAlreadyPosted.
	Create(ctx context.Context, chargeID string, paymentTxn *domain.Transaction, refund dto.Refund) (*domain.Transaction, error)

	// Revert undoes a previously posted refund after cancellation by
	// reversing its reversal pairs at full magnitude and posting a
	// refund_reversal entry, all atomically. Fails with
	// apperrors.ErrNotCanceledRefund or apperrors.ErrRefundEntryMissing.
	Revert(ctx context.Context, chargeID string, paymentTxn *domain.Transaction, refund dto.Refund) (*domain.Transaction, error)

	// CreateReversalBalancesForPayment creates full reversal pairs for every
	// not-yet-reversed balance group of a payment, without a refund record.
	// Administrative operation for manual corrections.
	CreateReversalBalancesForPayment(ctx context.Context, paymentTxn *domain.Transaction) ([]domain.BalancePair, error)
}
