package services

import (
	"context"

	"github.com/finbase/payment-ledger/internal/core/domain"
	"github.com/finbase/payment-ledger/internal/dto"
)

// PaymentSvcFacade turns external charge events into payment ledger entries.
type PaymentSvcFacade interface {
	// PostPayment posts a payment entry for a charge. Safe under webhook
	// replay: if an entry already exists for the charge id, it is returned
	// unchanged. Returns *apperrors.PledgeNotFoundError (retryable) when the
	// charge is pledge-typed but the pledge cannot be resolved yet.
	PostPayment(ctx context.Context, charge dto.Charge) (*domain.Transaction, error)

	// GetByChargeID looks up the payment entry for a charge id.
	GetByChargeID(ctx context.Context, chargeID string) (*domain.Transaction, error)
}
