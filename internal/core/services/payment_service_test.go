package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/finbase/payment-ledger/internal/apperrors"
	"github.com/finbase/payment-ledger/internal/core/domain"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/core/services"
	"github.com/finbase/payment-ledger/internal/dto"
)

type PaymentServiceTestSuite struct {
	suite.Suite
	mockRepo      *MockTransactionRepository
	mockClient    *MockProcessorClient
	mockPublisher *MockEventPublisher
	service       portssvc.PaymentSvcFacade
}

func (suite *PaymentServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockTransactionRepository)
	suite.mockClient = new(MockProcessorClient)
	suite.mockPublisher = new(MockEventPublisher)
	feeSvc := services.NewProcessorFeeService(suite.mockClient)
	suite.service = services.NewPaymentService(suite.mockRepo, suite.mockClient, feeSvc, suite.mockPublisher)
}

func (suite *PaymentServiceTestSuite) newCharge() dto.Charge {
	customerID := uuid.NewString()
	return dto.Charge{
		ID:         "ch_" + uuid.NewString(),
		Amount:     10000,
		Currency:   "usd",
		CustomerID: &customerID,
		Metadata:   map[string]string{},
	}
}

func (suite *PaymentServiceTestSuite) TestPostPaymentWithMetadataTax() {
	ctx := context.Background()
	charge := suite.newCharge()
	charge.Metadata["tax_amount"] = "912"
	charge.Metadata["tax_country"] = "US"
	charge.Metadata["tax_state"] = "NY"
	balanceTxnID := "txn_" + uuid.NewString()
	charge.BalanceTransactionID = &balanceTxnID

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockClient.On("GetBalanceTransaction", ctx, balanceTxnID).
		Return(&dto.BalanceTransaction{ID: balanceTxnID, Amount: 10000, Fee: 590, Currency: "usd"}, nil).Once()

	var saved domain.Transaction
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.Transaction) }).
		Return(nil).Once()
	suite.mockPublisher.On("PublishEntryPosted", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Require().NotNil(entry)
	suite.Equal(domain.Payment, entry.Type)
	suite.Equal(int64(10000-912), entry.Amount)
	suite.Equal(int64(912), entry.TaxAmount)
	suite.Require().NotNil(entry.TaxCountry)
	suite.Equal("US", *entry.TaxCountry)
	suite.Require().NotNil(entry.TaxState)
	suite.Equal("NY", *entry.TaxState)
	suite.Require().NotNil(entry.ChargeID)
	suite.Equal(charge.ID, *entry.ChargeID)

	suite.Require().Len(saved.IncurredTransactions, 1)
	suite.Equal(domain.ProcessorFee, saved.IncurredTransactions[0].Type)
	suite.Equal(int64(-590), saved.IncurredTransactions[0].Amount)

	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockClient.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestPostPaymentInvoiceTaxFallback() {
	ctx := context.Background()
	charge := suite.newCharge()
	invoiceID := "in_" + uuid.NewString()
	charge.InvoiceID = &invoiceID

	tax := int64(500)
	country := "SE"
	state := "AB"
	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockClient.On("GetInvoice", ctx, invoiceID).
		Return(&dto.Invoice{ID: invoiceID, Tax: &tax, TaxCountry: &country, TaxState: &state}, nil).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()
	suite.mockPublisher.On("PublishEntryPosted", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Equal(int64(9500), entry.Amount)
	suite.Equal(int64(500), entry.TaxAmount)
	suite.Require().NotNil(entry.TaxCountry)
	suite.Equal("SE", *entry.TaxCountry)
	// States only mean anything for US/CA sales tax.
	suite.Nil(entry.TaxState)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockClient.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestPostPaymentMetadataWinsOverInvoice() {
	ctx := context.Background()
	charge := suite.newCharge()
	invoiceID := "in_" + uuid.NewString()
	charge.InvoiceID = &invoiceID
	charge.Metadata["tax_amount"] = "100"

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()
	suite.mockPublisher.On("PublishEntryPosted", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Equal(int64(100), entry.TaxAmount)
	suite.mockClient.AssertNotCalled(suite.T(), "GetInvoice", mock.Anything, mock.Anything)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestPostPaymentIdempotent() {
	ctx := context.Background()
	charge := suite.newCharge()
	existing := &domain.Transaction{TransactionID: uuid.NewString(), Type: domain.Payment, ChargeID: &charge.ID}

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(existing, nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Equal(existing.TransactionID, entry.TransactionID)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishEntryPosted", mock.Anything, mock.Anything)
}

func (suite *PaymentServiceTestSuite) TestPostPaymentDuplicateRace() {
	ctx := context.Background()
	charge := suite.newCharge()
	existing := &domain.Transaction{TransactionID: uuid.NewString(), Type: domain.Payment, ChargeID: &charge.ID}

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).
		Return(fmt.Errorf("%w: uq_transactions_charge_id", apperrors.ErrDuplicateKey)).Once()
	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(existing, nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Equal(existing.TransactionID, entry.TransactionID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestPostPaymentPledgeNotFound() {
	ctx := context.Background()
	charge := suite.newCharge()
	charge.Metadata["type"] = dto.ProductTypePledge
	paymentIntentID := "pi_" + uuid.NewString()
	charge.PaymentIntentID = &paymentIntentID

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockClient.On("GetPledgeByPaymentIntent", ctx, paymentIntentID).Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.PostPayment(ctx, charge)

	suite.Require().Error(err)
	var pledgeErr *apperrors.PledgeNotFoundError
	suite.Require().True(errors.As(err, &pledgeErr))
	suite.Equal(charge.ID, pledgeErr.ChargeID)
	suite.Equal(paymentIntentID, pledgeErr.PaymentIntentID)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveTransaction", mock.Anything, mock.Anything)
}

func (suite *PaymentServiceTestSuite) TestPostPaymentPledgeResolved() {
	ctx := context.Background()
	charge := suite.newCharge()
	charge.Metadata["type"] = dto.ProductTypePledge
	paymentIntentID := "pi_" + uuid.NewString()
	charge.PaymentIntentID = &paymentIntentID
	orderID := uuid.NewString()
	pledge := &dto.Pledge{ID: uuid.NewString(), PaymentIntentID: paymentIntentID, OrderID: &orderID}

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockClient.On("GetPledgeByPaymentIntent", ctx, paymentIntentID).Return(pledge, nil).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()
	suite.mockPublisher.On("PublishEntryPosted", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.Require().NotNil(entry.PledgeID)
	suite.Equal(pledge.ID, *entry.PledgeID)
	suite.Require().NotNil(entry.OrderID)
	suite.Equal(orderID, *entry.OrderID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *PaymentServiceTestSuite) TestPostPaymentValidationFailure() {
	ctx := context.Background()
	charge := suite.newCharge()
	charge.Currency = ""

	_, err := suite.service.PostPayment(ctx, charge)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindByChargeID", mock.Anything, mock.Anything)
}

func (suite *PaymentServiceTestSuite) TestPostPaymentPublishFailureDoesNotFail() {
	ctx := context.Background()
	charge := suite.newCharge()

	suite.mockRepo.On("FindByChargeID", ctx, charge.ID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockRepo.On("SaveTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()
	suite.mockPublisher.On("PublishEntryPosted", ctx, mock.AnythingOfType("domain.Transaction")).
		Return(errors.New("broker unavailable")).Once()

	entry, err := suite.service.PostPayment(ctx, charge)

	suite.Require().NoError(err)
	suite.NotNil(entry)
	suite.mockPublisher.AssertExpectations(suite.T())
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}
