package mapping

import (
	"github.com/finbase/payment-ledger/internal/core/domain"
	"github.com/finbase/payment-ledger/internal/models"
)

// ToModelTransaction converts a domain transaction to its row model.
// IncurredTransactions are not flattened here; the repository persists child
// rows itself so it can set IncurredByTransactionID.
func ToModelTransaction(txn domain.Transaction) models.Transaction {
	var side *string
	if txn.BalanceSide != nil {
		s := string(*txn.BalanceSide)
		side = &s
	}

	return models.Transaction{
		TransactionID:                txn.TransactionID,
		Type:                         string(txn.Type),
		Processor:                    string(txn.Processor),
		Currency:                     txn.Currency,
		Amount:                       txn.Amount,
		AccountCurrency:              txn.AccountCurrency,
		AccountAmount:                txn.AccountAmount,
		TaxAmount:                    txn.TaxAmount,
		TaxCountry:                   txn.TaxCountry,
		TaxState:                     txn.TaxState,
		ChargeID:                     txn.ChargeID,
		RefundID:                     txn.RefundID,
		OrderID:                      txn.OrderID,
		PledgeID:                     txn.PledgeID,
		AccountID:                    txn.AccountID,
		PaymentTransactionID:         txn.PaymentTransactionID,
		BalanceCorrelationKey:        txn.BalanceCorrelationKey,
		BalanceSide:                  side,
		BalanceReversalTransactionID: txn.BalanceReversalTransactionID,
		TransferID:                   txn.TransferID,
		RiskLevel:                    txn.RiskLevel,
		RiskScore:                    txn.RiskScore,
		CustomerID:                   txn.CustomerID,
		CreatedAt:                    txn.CreatedAt,
	}
}

// ToDomainTransaction converts a row model back to the domain entity.
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	var side *domain.BalanceSide
	if m.BalanceSide != nil {
		s := domain.BalanceSide(*m.BalanceSide)
		side = &s
	}

	return domain.Transaction{
		TransactionID:                m.TransactionID,
		Type:                         domain.TransactionType(m.Type),
		Processor:                    domain.Processor(m.Processor),
		Currency:                     m.Currency,
		Amount:                       m.Amount,
		AccountCurrency:              m.AccountCurrency,
		AccountAmount:                m.AccountAmount,
		TaxAmount:                    m.TaxAmount,
		TaxCountry:                   m.TaxCountry,
		TaxState:                     m.TaxState,
		ChargeID:                     m.ChargeID,
		RefundID:                     m.RefundID,
		OrderID:                      m.OrderID,
		PledgeID:                     m.PledgeID,
		AccountID:                    m.AccountID,
		PaymentTransactionID:         m.PaymentTransactionID,
		BalanceCorrelationKey:        m.BalanceCorrelationKey,
		BalanceSide:                  side,
		BalanceReversalTransactionID: m.BalanceReversalTransactionID,
		TransferID:                   m.TransferID,
		RiskLevel:                    m.RiskLevel,
		RiskScore:                    m.RiskScore,
		CustomerID:                   m.CustomerID,
		CreatedAt:                    m.CreatedAt,
	}
}

// ToDomainTransactionSlice converts a slice of row models.
func ToDomainTransactionSlice(ms []models.Transaction) []domain.Transaction {
	txns := make([]domain.Transaction, len(ms))
	for i, m := range ms {
		txns[i] = ToDomainTransaction(m)
	}
	return txns
}
