package services_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/finbase/payment-ledger/internal/core/domain"
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/dto"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
}

// Ensure MockTransactionRepository implements portsrepo.TransactionRepositoryFacade
var _ portsrepo.TransactionRepositoryFacade = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) FindByChargeID(ctx context.Context, chargeID string) (*domain.Transaction, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByRefundID(ctx context.Context, refundID string) (*domain.Transaction, error) {
	args := m.Called(ctx, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	args := m.Called(ctx, paymentTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalancePair), args.Error(1)
}

func (m *MockTransactionRepository) FindUnreversedBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	args := m.Called(ctx, paymentTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalancePair), args.Error(1)
}

func (m *MockTransactionRepository) FindReversalPairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	args := m.Called(ctx, paymentTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalancePair), args.Error(1)
}

func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) SaveTransactions(ctx context.Context, txns []domain.Transaction) error {
	args := m.Called(ctx, txns)
	return args.Error(0)
}

// --- Mock ProcessorClient ---
type MockProcessorClient struct {
	mock.Mock
}

var _ portssvc.ProcessorClient = (*MockProcessorClient)(nil)

func (m *MockProcessorClient) GetInvoice(ctx context.Context, invoiceID string) (*dto.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Invoice), args.Error(1)
}

func (m *MockProcessorClient) GetBalanceTransaction(ctx context.Context, balanceTransactionID string) (*dto.BalanceTransaction, error) {
	args := m.Called(ctx, balanceTransactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BalanceTransaction), args.Error(1)
}

func (m *MockProcessorClient) GetPledgeByPaymentIntent(ctx context.Context, paymentIntentID string) (*dto.Pledge, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.Pledge), args.Error(1)
}

// --- Mock EventPublisher ---
type MockEventPublisher struct {
	mock.Mock
}

var _ portssvc.EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) PublishEntryPosted(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

// newTestBalancePair builds a persisted-looking balance-transfer pair for a
// payment: negative outgoing half without an account, positive incoming half
// on the given account.
func newTestBalancePair(paymentTransactionID string, amount int64, accountID string, createdAt time.Time) domain.BalancePair {
	correlationKey := uuid.NewString()
	transferID := uuid.NewString()
	outgoingSide := domain.SideOutgoing
	incomingSide := domain.SideIncoming

	outgoing := domain.Transaction{
		TransactionID:         uuid.NewString(),
		Type:                  domain.Balance,
		Processor:             domain.ProcessorStripe,
		Currency:              "usd",
		Amount:                -amount,
		AccountCurrency:       "usd",
		AccountAmount:         -amount,
		PaymentTransactionID:  &paymentTransactionID,
		BalanceCorrelationKey: &correlationKey,
		BalanceSide:           &outgoingSide,
		TransferID:            &transferID,
		CreatedAt:             createdAt,
	}
	incoming := domain.Transaction{
		TransactionID:         uuid.NewString(),
		Type:                  domain.Balance,
		Processor:             domain.ProcessorStripe,
		Currency:              "usd",
		Amount:                amount,
		AccountCurrency:       "usd",
		AccountAmount:         amount,
		AccountID:             &accountID,
		PaymentTransactionID:  &paymentTransactionID,
		BalanceCorrelationKey: &correlationKey,
		BalanceSide:           &incomingSide,
		TransferID:            &transferID,
		CreatedAt:             createdAt,
	}
	return domain.BalancePair{CorrelationKey: correlationKey, Outgoing: outgoing, Incoming: incoming}
}
