package models

import "time"

// Transaction mirrors one row of the transactions table. Nullable columns
// are pointers so scanning round-trips NULL faithfully.
type Transaction struct {
	TransactionID string
	Type          string
	Processor     string

	Currency string
	Amount   int64

	AccountCurrency string
	AccountAmount   int64

	TaxAmount  int64
	TaxCountry *string
	TaxState   *string

	ChargeID *string
	RefundID *string

	OrderID  *string
	PledgeID *string

	AccountID            *string
	PaymentTransactionID *string

	BalanceCorrelationKey        *string
	BalanceSide                  *string
	BalanceReversalTransactionID *string

	TransferID *string

	RiskLevel  *string
	RiskScore  *int
	CustomerID *string

	// IncurredByTransactionID links a child fee row to the entry it was
	// incurred by; NULL for top-level entries.
	IncurredByTransactionID *string

	CreatedAt time.Time
}
