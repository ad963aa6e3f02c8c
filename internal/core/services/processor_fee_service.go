package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finbase/payment-ledger/internal/core/domain"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/platform/logging"
)

// processorFeeService resolves processor balance transactions into fee
// entries attached to the payment or refund entry that incurred them.
type processorFeeService struct {
	processorClient portssvc.ProcessorClient
}

// NewProcessorFeeService creates a new ProcessorFeeService.
func NewProcessorFeeService(processorClient portssvc.ProcessorClient) portssvc.ProcessorFeeSvcFacade {
	return &processorFeeService{processorClient: processorClient}
}

// Ensure processorFeeService implements the portssvc.ProcessorFeeSvcFacade interface
var _ portssvc.ProcessorFeeSvcFacade = (*processorFeeService)(nil)

// CreatePaymentFees builds the fee entries a charge incurred. Returns no
// entries when the charge carries no balance transaction reference or the
// resolved fee is zero.
func (s *processorFeeService) CreatePaymentFees(ctx context.Context, params portssvc.PaymentFeeParams) ([]domain.Transaction, error) {
	return s.buildFees(ctx, params.PaymentTransaction, params.BalanceTransactionID)
}

// CreateRefundFees builds the fee entries a refund incurred, for processors
// that do not return their fee on refund.
func (s *processorFeeService) CreateRefundFees(ctx context.Context, params portssvc.RefundFeeParams) ([]domain.Transaction, error) {
	return s.buildFees(ctx, params.RefundTransaction, params.BalanceTransactionID)
}

func (s *processorFeeService) buildFees(ctx context.Context, incurredBy *domain.Transaction, balanceTransactionID string) ([]domain.Transaction, error) {
	logger := logging.FromCtx(ctx)

	if balanceTransactionID == "" {
		return nil, nil
	}

	balanceTxn, err := s.processorClient.GetBalanceTransaction(ctx, balanceTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance transaction %s: %w", balanceTransactionID, err)
	}
	if balanceTxn.Fee == 0 {
		return nil, nil
	}

	fee := domain.Transaction{
		TransactionID:   uuid.NewString(),
		Type:            domain.ProcessorFee,
		Processor:       incurredBy.Processor,
		Currency:        balanceTxn.Currency,
		Amount:          -balanceTxn.Fee,
		AccountCurrency: balanceTxn.Currency,
		AccountAmount:   -balanceTxn.Fee,
		CreatedAt:       time.Now().UTC(),
	}

	logger.Info("Processor fee resolved",
		slog.String("balance_transaction_id", balanceTransactionID),
		slog.Int64("fee", balanceTxn.Fee))

	return []domain.Transaction{fee}, nil
}
