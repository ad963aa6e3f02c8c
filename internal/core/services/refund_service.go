package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbase/payment-ledger/internal/apperrors"
	"github.com/finbase/payment-ledger/internal/core/domain"
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/dto"
	"github.com/finbase/payment-ledger/internal/platform/logging"
)

// refundService posts refund entries and unwinds a payment's balance
// transfers proportionally when money goes back to the payer.
type refundService struct {
	transactionRepo portsrepo.TransactionRepositoryFacade
	balanceSvc      portssvc.BalanceSvcFacade
	feeSvc          portssvc.ProcessorFeeSvcFacade
	publisher       portssvc.EventPublisher
	validate        *validator.Validate
}

// NewRefundService creates a new RefundService. publisher may be nil when no
// event transport is configured.
func NewRefundService(
	transactionRepo portsrepo.TransactionRepositoryFacade,
	balanceSvc portssvc.BalanceSvcFacade,
	feeSvc portssvc.ProcessorFeeSvcFacade,
	publisher portssvc.EventPublisher,
) portssvc.RefundSvcFacade {
	return &refundService{
		transactionRepo: transactionRepo,
		balanceSvc:      balanceSvc,
		feeSvc:          feeSvc,
		publisher:       publisher,
		validate:        validator.New(),
	}
}

// Ensure refundService implements the portssvc.RefundSvcFacade interface
var _ portssvc.RefundSvcFacade = (*refundService)(nil)

// Create posts a succeeded refund: one reversal pair per balance-transfer
// group of the payment, with the refund amount split across groups in
// proportion to their magnitudes, plus a negative refund entry carrying any
// incurred fees. Everything lands in a single atomic write, so a crash
// leaves either the full refund or nothing.
func (s *refundService) Create(ctx context.Context, chargeID string, paymentTxn *domain.Transaction, refund dto.Refund) (*domain.Transaction, error) {
	logger := logging.FromCtx(ctx)

	if err := s.validate.Struct(refund); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	if refund.Status != dto.RefundSucceeded {
		return nil, fmt.Errorf("%w: refund %s has status %s", apperrors.ErrNotSucceededRefund, refund.ID, refund.Status)
	}

	if existing, err := s.transactionRepo.FindByRefundID(ctx, refund.ID); err == nil {
		logger.Info("Refund already posted", slog.String("refund_id", refund.ID),
			slog.String("transaction_id", existing.TransactionID))
		return nil, fmt.Errorf("%w: refund %s", apperrors.ErrRefundAlreadyPosted, refund.ID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up refund %s: %w", refund.ID, err)
	}

	pairs, err := s.transactionRepo.FindBalancePairsForPayment(ctx, paymentTxn.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance pairs for payment %s: %w", paymentTxn.TransactionID, err)
	}

	now := time.Now().UTC()
	entries := make([]domain.Transaction, 0, 2*len(pairs)+1)
	for _, share := range splitRefundAcrossPairs(refund.Amount, pairs) {
		reversal := s.balanceSvc.BuildReversalBalance(share.pair, share.amount, now)
		entries = append(entries, reversal.Outgoing, reversal.Incoming)
	}

	refundTxn := domain.Transaction{
		TransactionID:        uuid.NewString(),
		Type:                 domain.Refund,
		Processor:            domain.ProcessorStripe,
		Currency:             refund.Currency,
		Amount:               -refund.Amount,
		AccountCurrency:      refund.Currency,
		AccountAmount:        -refund.Amount,
		ChargeID:             &chargeID,
		RefundID:             &refund.ID,
		OrderID:              refund.OrderID,
		PledgeID:             paymentTxn.PledgeID,
		PaymentTransactionID: &paymentTxn.TransactionID,
		CreatedAt:            now,
	}
	if refund.BalanceTransactionID != "" {
		fees, err := s.feeSvc.CreateRefundFees(ctx, portssvc.RefundFeeParams{
			RefundTransaction:    &refundTxn,
			BalanceTransactionID: refund.BalanceTransactionID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compute fees for refund %s: %w", refund.ID, err)
		}
		refundTxn.IncurredTransactions = fees
	}
	entries = append(entries, refundTxn)

	if err := s.transactionRepo.SaveTransactions(ctx, entries); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: refund %s", apperrors.ErrRefundAlreadyPosted, refund.ID)
		}
		logger.Error("Failed to save refund entries",
			slog.String("refund_id", refund.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save refund entries: %w", err)
	}

	logger.Info("Refund posted",
		slog.String("transaction_id", refundTxn.TransactionID),
		slog.String("refund_id", refund.ID),
		slog.Int64("amount", refund.Amount),
		slog.Int("reversed_pairs", len(pairs)))

	s.publish(ctx, refundTxn)
	return &refundTxn, nil
}

// Revert undoes a canceled refund by reversing each of the payment's still
// outstanding reversal pairs at full magnitude and posting a positive
// refund_reversal entry, all in one atomic write.
func (s *refundService) Revert(ctx context.Context, chargeID string, paymentTxn *domain.Transaction, refund dto.Refund) (*domain.Transaction, error) {
	logger := logging.FromCtx(ctx)

	if err := s.validate.Struct(refund); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	if refund.Status != dto.RefundCanceled {
		return nil, fmt.Errorf("%w: refund %s has status %s", apperrors.ErrNotCanceledRefund, refund.ID, refund.Status)
	}

	refundTxn, err := s.transactionRepo.FindByRefundID(ctx, refund.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: refund %s", apperrors.ErrRefundEntryMissing, refund.ID)
		}
		return nil, fmt.Errorf("failed to look up refund %s: %w", refund.ID, err)
	}

	reversalPairs, err := s.transactionRepo.FindReversalPairsForPayment(ctx, paymentTxn.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reversal pairs for payment %s: %w", paymentTxn.TransactionID, err)
	}

	now := time.Now().UTC()
	entries := make([]domain.Transaction, 0, 2*len(reversalPairs)+1)
	for _, pair := range reversalPairs {
		unwind := s.balanceSvc.BuildReversalBalance(pair, pair.Magnitude(), now)
		entries = append(entries, unwind.Outgoing, unwind.Incoming)
	}

	reversalTxn := domain.Transaction{
		TransactionID:        uuid.NewString(),
		Type:                 domain.RefundReversal,
		Processor:            domain.ProcessorStripe,
		Currency:             refund.Currency,
		Amount:               refund.Amount,
		AccountCurrency:      refund.Currency,
		AccountAmount:        refund.Amount,
		ChargeID:             &chargeID,
		RefundID:             &refund.ID,
		OrderID:              refundTxn.OrderID,
		PledgeID:             refundTxn.PledgeID,
		PaymentTransactionID: &paymentTxn.TransactionID,
		CreatedAt:            now,
	}
	entries = append(entries, reversalTxn)

	if err := s.transactionRepo.SaveTransactions(ctx, entries); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			// A concurrent delivery already reverted this refund.
			return nil, fmt.Errorf("%w: refund %s already reverted", apperrors.ErrDuplicateKey, refund.ID)
		}
		logger.Error("Failed to save refund reversal entries",
			slog.String("refund_id", refund.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save refund reversal entries: %w", err)
	}

	logger.Info("Refund reverted",
		slog.String("transaction_id", reversalTxn.TransactionID),
		slog.String("refund_id", refund.ID),
		slog.Int("unwound_pairs", len(reversalPairs)))

	s.publish(ctx, reversalTxn)
	return &reversalTxn, nil
}

// CreateReversalBalancesForPayment fully reverses every balance-transfer
// group of the payment that no reversal references yet. Used for manual
// corrections outside the refund flow; safe to re-run since already
// reversed groups are skipped.
func (s *refundService) CreateReversalBalancesForPayment(ctx context.Context, paymentTxn *domain.Transaction) ([]domain.BalancePair, error) {
	logger := logging.FromCtx(ctx)

	pairs, err := s.transactionRepo.FindUnreversedBalancePairsForPayment(ctx, paymentTxn.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unreversed balance pairs for payment %s: %w", paymentTxn.TransactionID, err)
	}

	created := make([]domain.BalancePair, 0, len(pairs))
	for _, pair := range pairs {
		reversal, err := s.balanceSvc.CreateReversalBalance(ctx, pair, pair.Magnitude())
		if err != nil {
			return created, fmt.Errorf("failed to reverse balance pair %s: %w", pair.CorrelationKey, err)
		}
		created = append(created, reversal)
	}

	logger.Info("Reversal balances created for payment",
		slog.String("payment_transaction_id", paymentTxn.TransactionID),
		slog.Int("pairs", len(created)))

	return created, nil
}

// pairShare is one balance-transfer group with the refund portion assigned
// to it.
type pairShare struct {
	pair   domain.BalancePair
	amount int64
}

// splitRefundAcrossPairs distributes the refund amount over the payment's
// balance-transfer groups in creation order, proportional to each group's
// magnitude. Shares are rounded half away from zero; the last group absorbs
// the rounding residual so the shares always sum to the refund amount.
func splitRefundAcrossPairs(refundAmount int64, pairs []domain.BalancePair) []pairShare {
	total := int64(0)
	for _, pair := range pairs {
		total += pair.Magnitude()
	}
	if total == 0 {
		return nil
	}

	refundDec := decimal.NewFromInt(refundAmount)
	totalDec := decimal.NewFromInt(total)

	shares := make([]pairShare, 0, len(pairs))
	remaining := refundAmount
	for i, pair := range pairs {
		var amount int64
		if i == len(pairs)-1 {
			amount = remaining
		} else {
			amount = refundDec.
				Mul(decimal.NewFromInt(pair.Magnitude())).
				Div(totalDec).
				Round(0).
				IntPart()
			if amount > remaining {
				amount = remaining
			}
		}
		remaining -= amount
		shares = append(shares, pairShare{pair: pair, amount: amount})
	}
	return shares
}

func (s *refundService) publish(ctx context.Context, entry domain.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryPosted(ctx, entry); err != nil {
		logging.FromCtx(ctx).Warn("Failed to publish entry posted event",
			slog.String("transaction_id", entry.TransactionID), slog.String("error", err.Error()))
	}
}
