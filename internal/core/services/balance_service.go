package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbase/payment-ledger/internal/apperrors"
	"github.com/finbase/payment-ledger/internal/core/domain"
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/platform/logging"
)

// balanceService creates matched outgoing/incoming ledger entry pairs and
// their reversals.
type balanceService struct {
	transactionRepo portsrepo.TransactionRepositoryFacade
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(transactionRepo portsrepo.TransactionRepositoryFacade) portssvc.BalanceSvcFacade {
	return &balanceService{transactionRepo: transactionRepo}
}

// Ensure balanceService implements the portssvc.BalanceSvcFacade interface
var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

// CreateBalance persists a new balance-transfer pair: an outgoing entry
// (negative, no account) and an incoming entry (positive, destination
// account) sharing one correlation key and transfer id. The pair is saved
// atomically; the two amounts are exact negations of each other, with any
// currency conversion applied to the account-side fields of the incoming
// half only.
func (s *balanceService) CreateBalance(ctx context.Context, params portssvc.CreateBalanceParams) (domain.BalancePair, error) {
	logger := logging.FromCtx(ctx)

	if params.Amount <= 0 {
		return domain.BalancePair{}, fmt.Errorf("%w: balance amount must be positive", apperrors.ErrValidation)
	}
	if params.DestinationAccountID == nil {
		return domain.BalancePair{}, fmt.Errorf("%w: balance transfer requires a destination account", apperrors.ErrValidation)
	}
	if params.PaymentTransaction == nil {
		return domain.BalancePair{}, fmt.Errorf("%w: balance transfer requires an originating payment entry", apperrors.ErrValidation)
	}

	accountCurrency := params.AccountCurrency
	accountAmount := params.AccountAmount
	if accountCurrency == "" {
		accountCurrency = params.Currency
		accountAmount = params.Amount
	}
	if accountAmount <= 0 {
		return domain.BalancePair{}, fmt.Errorf("%w: account amount must carry the same sign as amount", apperrors.ErrValidation)
	}

	correlationKey := params.CorrelationKey
	if correlationKey == "" {
		correlationKey = uuid.NewString()
	}

	now := time.Now().UTC()
	outgoingSide := domain.SideOutgoing
	incomingSide := domain.SideIncoming
	transferID := params.TransferID

	outgoing := domain.Transaction{
		TransactionID:         uuid.NewString(),
		Type:                  domain.Balance,
		Processor:             params.PaymentTransaction.Processor,
		Currency:              params.Currency,
		Amount:                -params.Amount,
		AccountCurrency:       params.Currency,
		AccountAmount:         -params.Amount,
		OrderID:               params.OrderID,
		AccountID:             params.SourceAccountID,
		PaymentTransactionID:  &params.PaymentTransaction.TransactionID,
		BalanceCorrelationKey: &correlationKey,
		BalanceSide:           &outgoingSide,
		TransferID:            &transferID,
		CreatedAt:             now,
	}
	incoming := domain.Transaction{
		TransactionID:         uuid.NewString(),
		Type:                  domain.Balance,
		Processor:             params.PaymentTransaction.Processor,
		Currency:              params.Currency,
		Amount:                params.Amount,
		AccountCurrency:       accountCurrency,
		AccountAmount:         accountAmount,
		OrderID:               params.OrderID,
		AccountID:             params.DestinationAccountID,
		PaymentTransactionID:  &params.PaymentTransaction.TransactionID,
		BalanceCorrelationKey: &correlationKey,
		BalanceSide:           &incomingSide,
		TransferID:            &transferID,
		CreatedAt:             now,
	}

	if err := s.transactionRepo.SaveTransactions(ctx, []domain.Transaction{outgoing, incoming}); err != nil {
		logger.Error("Failed to save balance pair",
			slog.String("correlation_key", correlationKey), slog.String("error", err.Error()))
		return domain.BalancePair{}, fmt.Errorf("failed to save balance pair: %w", err)
	}

	logger.Info("Balance pair created",
		slog.String("correlation_key", correlationKey),
		slog.String("payment_transaction_id", params.PaymentTransaction.TransactionID),
		slog.Int64("amount", params.Amount))

	return domain.BalancePair{CorrelationKey: correlationKey, Outgoing: outgoing, Incoming: incoming}, nil
}

// BuildReversalBalance constructs a pair negating the given pair for the
// given magnitude, without persisting it. The new outgoing half takes the
// original incoming entry's account and points at it; the new incoming half
// takes the original outgoing entry's account (none, for a first-order
// reversal) and points at that entry. The pair gets its own derived
// correlation key so it can itself be queried and reversed further.
func (s *balanceService) BuildReversalBalance(pair domain.BalancePair, amount int64, now time.Time) domain.BalancePair {
	correlationKey := uuid.NewString()
	outgoingSide := domain.SideOutgoing
	incomingSide := domain.SideIncoming

	accountCurrency := pair.Incoming.AccountCurrency
	accountAmount := convertedAccountAmount(amount, pair.Incoming)

	outgoing := domain.Transaction{
		TransactionID:                uuid.NewString(),
		Type:                         domain.Balance,
		Processor:                    pair.Outgoing.Processor,
		Currency:                     pair.Outgoing.Currency,
		Amount:                       -amount,
		AccountCurrency:              accountCurrency,
		AccountAmount:                -accountAmount,
		OrderID:                      pair.Incoming.OrderID,
		AccountID:                    pair.Incoming.AccountID,
		BalanceCorrelationKey:        &correlationKey,
		BalanceSide:                  &outgoingSide,
		BalanceReversalTransactionID: &pair.Incoming.TransactionID,
		TransferID:                   pair.Incoming.TransferID,
		CreatedAt:                    now,
	}
	incoming := domain.Transaction{
		TransactionID:                uuid.NewString(),
		Type:                         domain.Balance,
		Processor:                    pair.Outgoing.Processor,
		Currency:                     pair.Outgoing.Currency,
		Amount:                       amount,
		AccountCurrency:              pair.Outgoing.Currency,
		AccountAmount:                amount,
		OrderID:                      pair.Outgoing.OrderID,
		AccountID:                    pair.Outgoing.AccountID,
		BalanceCorrelationKey:        &correlationKey,
		BalanceSide:                  &incomingSide,
		BalanceReversalTransactionID: &pair.Outgoing.TransactionID,
		TransferID:                   pair.Outgoing.TransferID,
		CreatedAt:                    now,
	}

	return domain.BalancePair{CorrelationKey: correlationKey, Outgoing: outgoing, Incoming: incoming}
}

// CreateReversalBalance builds and persists a reversal pair for the given
// magnitude, which may be less than the pair's full magnitude for a
// partial/proportional reversal.
func (s *balanceService) CreateReversalBalance(ctx context.Context, pair domain.BalancePair, amount int64) (domain.BalancePair, error) {
	logger := logging.FromCtx(ctx)

	if amount <= 0 {
		return domain.BalancePair{}, fmt.Errorf("%w: reversal amount must be positive", apperrors.ErrValidation)
	}
	if amount > pair.Magnitude() {
		return domain.BalancePair{}, fmt.Errorf("%w: reversal amount %d exceeds pair magnitude %d",
			apperrors.ErrValidation, amount, pair.Magnitude())
	}

	reversal := s.BuildReversalBalance(pair, amount, time.Now().UTC())
	if err := s.transactionRepo.SaveTransactions(ctx, []domain.Transaction{reversal.Outgoing, reversal.Incoming}); err != nil {
		logger.Error("Failed to save reversal balance pair",
			slog.String("reversed_correlation_key", pair.CorrelationKey), slog.String("error", err.Error()))
		return domain.BalancePair{}, fmt.Errorf("failed to save reversal balance pair: %w", err)
	}

	logger.Info("Reversal balance pair created",
		slog.String("correlation_key", reversal.CorrelationKey),
		slog.String("reversed_correlation_key", pair.CorrelationKey),
		slog.Int64("amount", amount))

	return reversal, nil
}

// convertedAccountAmount scales the reversed magnitude into the account
// currency using the original incoming entry's conversion ratio. Without
// conversion the account amount equals the ledger amount.
func convertedAccountAmount(amount int64, incoming domain.Transaction) int64 {
	if incoming.AccountCurrency == incoming.Currency || incoming.Amount == 0 {
		return amount
	}
	ratio := decimal.NewFromInt(incoming.AccountAmount).Div(decimal.NewFromInt(incoming.Amount))
	return decimal.NewFromInt(amount).Mul(ratio).Round(0).IntPart()
}
