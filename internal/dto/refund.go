package dto

// RefundStatus is the processor-reported lifecycle state of a refund.
// pending -> succeeded | failed; succeeded -> canceled.
type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundSucceeded RefundStatus = "succeeded"
	RefundFailed    RefundStatus = "failed"
	RefundCanceled  RefundStatus = "canceled"
)

// Refund is the processor-reported refund event consumed by refund posting.
type Refund struct {
	ID                   string       `json:"id" validate:"required"`
	Status               RefundStatus `json:"status" validate:"required,oneof=pending succeeded failed canceled"`
	Amount               int64        `json:"amount" validate:"gt=0"`
	Currency             string       `json:"currency" validate:"required,len=3"`
	ChargeID             string       `json:"chargeID" validate:"required"`
	BalanceTransactionID string       `json:"balanceTransactionID"`
	OrderID              *string      `json:"orderID"`
}

// BalanceTransaction is the processor's accounting record for a money
// movement, consumed as fee-computation input.
type BalanceTransaction struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Fee      int64  `json:"fee"`
	Currency string `json:"currency"`
}
