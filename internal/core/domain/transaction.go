package domain

import "time"

// TransactionType tags the kind of money movement a ledger entry records.
type TransactionType string

const (
	Payment        TransactionType = "payment"
	Balance        TransactionType = "balance"
	Refund         TransactionType = "refund"
	RefundReversal TransactionType = "refund_reversal"
	ProcessorFee   TransactionType = "processor_fee"
	Dispute        TransactionType = "dispute"
)

// Processor identifies the external payment processor an entry relates to.
type Processor string

const (
	ProcessorStripe Processor = "stripe"
)

// BalanceSide marks which half of a balance-transfer pair an entry is, so
// queries never depend on row order to disambiguate direction.
type BalanceSide string

const (
	SideOutgoing BalanceSide = "outgoing"
	SideIncoming BalanceSide = "incoming"
)

// Transaction is a single immutable ledger entry: one signed money movement.
// Amounts are signed integers in minor units; positive means inflow to the
// platform, negative means outflow. Entries are never updated or deleted
// after creation; corrections are always additional reversal entries.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	Type          TransactionType `json:"type"`
	Processor     Processor       `json:"processor"`

	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`

	// Account-side view of the movement. Cross-currency conversion may make
	// these differ from Currency/Amount, but AccountAmount always carries the
	// same sign as Amount.
	AccountCurrency string `json:"accountCurrency"`
	AccountAmount   int64  `json:"accountAmount"`

	TaxAmount  int64   `json:"taxAmount"`
	TaxCountry *string `json:"taxCountry,omitempty"`
	TaxState   *string `json:"taxState,omitempty"` // only meaningful for US/CA

	// External identifiers. ChargeID is unique per payment entry, RefundID
	// unique per refund entry; both serve as idempotency keys.
	ChargeID *string `json:"chargeID,omitempty"`
	RefundID *string `json:"refundID,omitempty"`

	// Weak references into aggregates this ledger does not own.
	OrderID  *string `json:"orderID,omitempty"`
	PledgeID *string `json:"pledgeID,omitempty"`

	// AccountID is the destination account; set on the incoming half of a
	// balance-transfer pair, absent on the outgoing half.
	AccountID *string `json:"accountID,omitempty"`

	// PaymentTransactionID links balance/refund entries back to the payment
	// entry they stem from.
	PaymentTransactionID *string `json:"paymentTransactionID,omitempty"`

	// BalanceCorrelationKey groups the two halves of one balance-transfer
	// pair. A reversal pair carries its own derived key plus explicit
	// BalanceReversalTransactionID pointers at the entries it reverses.
	BalanceCorrelationKey        *string      `json:"balanceCorrelationKey,omitempty"`
	BalanceSide                  *BalanceSide `json:"balanceSide,omitempty"`
	BalanceReversalTransactionID *string      `json:"balanceReversalTransactionID,omitempty"`

	// TransferID identifies the underlying processor money movement, shared
	// by both halves of a pair.
	TransferID *string `json:"transferID,omitempty"`

	RiskLevel  *string `json:"riskLevel,omitempty"`
	RiskScore  *int    `json:"riskScore,omitempty"`
	CustomerID *string `json:"customerID,omitempty"`

	// IncurredTransactions are child fee entries attributed to this entry,
	// attached once at creation and never mutated afterwards.
	IncurredTransactions []Transaction `json:"incurredTransactions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsReversal reports whether the entry reverses another balance entry.
func (t Transaction) IsReversal() bool {
	return t.BalanceReversalTransactionID != nil
}

// IsIncoming reports whether the entry is the account-side half of a pair.
func (t Transaction) IsIncoming() bool {
	return t.BalanceSide != nil && *t.BalanceSide == SideIncoming
}

// BalancePair is the outgoing/incoming couple that forms one logical
// transfer between the platform and a destination account.
type BalancePair struct {
	CorrelationKey string
	Outgoing       Transaction
	Incoming       Transaction
}

// Magnitude is the absolute amount moved by the pair.
func (p BalancePair) Magnitude() int64 {
	if p.Outgoing.Amount < 0 {
		return -p.Outgoing.Amount
	}
	return p.Outgoing.Amount
}

// CreatedAt is the pair's canonical ordering timestamp, the earliest of the
// two halves.
func (p BalancePair) CreatedAt() time.Time {
	if p.Incoming.CreatedAt.Before(p.Outgoing.CreatedAt) {
		return p.Incoming.CreatedAt
	}
	return p.Outgoing.CreatedAt
}
