package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/finbase/payment-ledger/internal/apperrors"
	"github.com/finbase/payment-ledger/internal/core/domain"
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/dto"
	"github.com/finbase/payment-ledger/internal/platform/logging"
)

const (
	metadataTaxAmount  = "tax_amount"
	metadataTaxCountry = "tax_country"
	metadataTaxState   = "tax_state"
)

// paymentService turns processor charge events into payment ledger entries.
type paymentService struct {
	transactionRepo portsrepo.TransactionRepositoryFacade
	processorClient portssvc.ProcessorClient
	feeSvc          portssvc.ProcessorFeeSvcFacade
	publisher       portssvc.EventPublisher
	validate        *validator.Validate
}

// NewPaymentService creates a new PaymentService. publisher may be nil when
// no event transport is configured.
func NewPaymentService(
	transactionRepo portsrepo.TransactionRepositoryFacade,
	processorClient portssvc.ProcessorClient,
	feeSvc portssvc.ProcessorFeeSvcFacade,
	publisher portssvc.EventPublisher,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		transactionRepo: transactionRepo,
		processorClient: processorClient,
		feeSvc:          feeSvc,
		publisher:       publisher,
		validate:        validator.New(),
	}
}

// Ensure paymentService implements the portssvc.PaymentSvcFacade interface
var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// PostPayment records a succeeded charge as a payment entry. Tax metadata on
// the charge wins over the invoice's tax summary; the recorded amount is the
// charge amount net of tax. Reprocessing the same charge returns the
// existing entry unchanged.
func (s *paymentService) PostPayment(ctx context.Context, charge dto.Charge) (*domain.Transaction, error) {
	logger := logging.FromCtx(ctx)

	if err := s.validate.Struct(charge); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	existing, err := s.transactionRepo.FindByChargeID(ctx, charge.ID)
	if err == nil {
		logger.Info("Charge already posted, returning existing entry",
			slog.String("charge_id", charge.ID),
			slog.String("transaction_id", existing.TransactionID))
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up charge %s: %w", charge.ID, err)
	}

	taxAmount, taxCountry, taxState, pledgeInvoice, err := s.resolveTax(ctx, charge)
	if err != nil {
		return nil, err
	}

	var pledgeID, orderID *string
	if pledgeInvoice || charge.IsPledge() {
		pledge, err := s.resolvePledge(ctx, charge)
		if err != nil {
			return nil, err
		}
		pledgeID = &pledge.ID
		orderID = pledge.OrderID
	}

	entry := domain.Transaction{
		TransactionID:   uuid.NewString(),
		Type:            domain.Payment,
		Processor:       domain.ProcessorStripe,
		Currency:        charge.Currency,
		Amount:          charge.Amount - taxAmount,
		AccountCurrency: charge.Currency,
		AccountAmount:   charge.Amount - taxAmount,
		TaxAmount:       taxAmount,
		TaxCountry:      taxCountry,
		TaxState:        taxState,
		ChargeID:        &charge.ID,
		OrderID:         orderID,
		PledgeID:        pledgeID,
		CustomerID:      charge.CustomerID,
		CreatedAt:       time.Now().UTC(),
	}
	if charge.Outcome != nil {
		entry.RiskLevel = &charge.Outcome.RiskLevel
		entry.RiskScore = charge.Outcome.RiskScore
	}

	if charge.BalanceTransactionID != nil {
		fees, err := s.feeSvc.CreatePaymentFees(ctx, portssvc.PaymentFeeParams{
			PaymentTransaction:   &entry,
			BalanceTransactionID: *charge.BalanceTransactionID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compute fees for charge %s: %w", charge.ID, err)
		}
		entry.IncurredTransactions = fees
	}

	if err := s.transactionRepo.SaveTransaction(ctx, entry); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			// Lost a race with a concurrent delivery of the same charge.
			logger.Warn("Concurrent posting detected for charge", slog.String("charge_id", charge.ID))
			return s.transactionRepo.FindByChargeID(ctx, charge.ID)
		}
		logger.Error("Failed to save payment entry",
			slog.String("charge_id", charge.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save payment entry: %w", err)
	}

	logger.Info("Payment entry posted",
		slog.String("transaction_id", entry.TransactionID),
		slog.String("charge_id", charge.ID),
		slog.Int64("amount", entry.Amount),
		slog.Int64("tax_amount", taxAmount))

	s.publishEntryPosted(ctx, entry)
	return &entry, nil
}

// GetByChargeID returns the payment entry recorded for the given charge.
func (s *paymentService) GetByChargeID(ctx context.Context, chargeID string) (*domain.Transaction, error) {
	return s.transactionRepo.FindByChargeID(ctx, chargeID)
}

// resolveTax extracts tax data from charge metadata, falling back to the
// invoice when the metadata carries none. It also reports whether the
// invoice marks the charge as a pledge product. TaxState is kept only for
// countries with sub-national sales tax.
func (s *paymentService) resolveTax(ctx context.Context, charge dto.Charge) (int64, *string, *string, bool, error) {
	var (
		taxAmount     int64
		taxCountry    *string
		taxState      *string
		pledgeInvoice bool
	)

	if raw, ok := charge.Metadata[metadataTaxAmount]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, nil, nil, false, fmt.Errorf("%w: charge %s carries non-numeric tax_amount %q",
				apperrors.ErrValidation, charge.ID, raw)
		}
		taxAmount = parsed
		if country, ok := charge.Metadata[metadataTaxCountry]; ok {
			taxCountry = &country
		}
		if state, ok := charge.Metadata[metadataTaxState]; ok {
			taxState = &state
		}
	} else if charge.InvoiceID != nil {
		invoice, err := s.processorClient.GetInvoice(ctx, *charge.InvoiceID)
		if err != nil {
			return 0, nil, nil, false, fmt.Errorf("failed to get invoice %s: %w", *charge.InvoiceID, err)
		}
		if invoice.Tax != nil {
			taxAmount = *invoice.Tax
		}
		taxCountry = invoice.TaxCountry
		taxState = invoice.TaxState
		pledgeInvoice = invoice.Metadata["type"] == dto.ProductTypePledge
	}

	if taxCountry == nil || (*taxCountry != "US" && *taxCountry != "CA") {
		taxState = nil
	}
	return taxAmount, taxCountry, taxState, pledgeInvoice, nil
}

// resolvePledge looks up the pledge a charge pays for via its payment
// intent. A missing pledge is returned as a typed retryable error since the
// pledge record may not have landed yet.
func (s *paymentService) resolvePledge(ctx context.Context, charge dto.Charge) (*dto.Pledge, error) {
	if charge.PaymentIntentID == nil {
		return nil, fmt.Errorf("%w: pledge charge %s carries no payment intent", apperrors.ErrValidation, charge.ID)
	}
	pledge, err := s.processorClient.GetPledgeByPaymentIntent(ctx, *charge.PaymentIntentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.PledgeNotFoundError{ChargeID: charge.ID, PaymentIntentID: *charge.PaymentIntentID}
		}
		return nil, fmt.Errorf("failed to resolve pledge for charge %s: %w", charge.ID, err)
	}
	return pledge, nil
}

// publishEntryPosted emits the posted event. Publishing is best effort; the
// entry is already durable and a lost event must never fail the posting.
func (s *paymentService) publishEntryPosted(ctx context.Context, entry domain.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntryPosted(ctx, entry); err != nil {
		logging.FromCtx(ctx).Warn("Failed to publish entry posted event",
			slog.String("transaction_id", entry.TransactionID), slog.String("error", err.Error()))
	}
}
