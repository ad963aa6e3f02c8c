package dto

// ChargeOutcome carries the processor's risk assessment for a charge.
type ChargeOutcome struct {
	RiskLevel string `json:"riskLevel"`
	RiskScore *int   `json:"riskScore"`
}

// Charge is the processor-reported charge event consumed by payment posting.
// Metadata may carry explicit tax fields ("tax_amount", "tax_country",
// "tax_state") and a product type marker ("type").
type Charge struct {
	ID                   string            `json:"id" validate:"required"`
	Amount               int64             `json:"amount" validate:"gte=0"`
	Currency             string            `json:"currency" validate:"required,len=3"`
	CustomerID           *string           `json:"customerID"`
	InvoiceID            *string           `json:"invoiceID"`
	PaymentIntentID      *string           `json:"paymentIntentID"`
	BalanceTransactionID *string           `json:"balanceTransactionID"`
	Metadata             map[string]string `json:"metadata"`
	Outcome              *ChargeOutcome    `json:"outcome"`
}

// ProductTypePledge marks a charge whose money relates to a pledge.
const ProductTypePledge = "pledge"

// IsPledge reports whether the charge metadata marks it as a pledge product.
func (c Charge) IsPledge() bool {
	return c.Metadata["type"] == ProductTypePledge
}

// Invoice is the subset of a processor invoice the ledger needs: its tax
// summary and metadata.
type Invoice struct {
	ID         string            `json:"id"`
	Tax        *int64            `json:"tax"`
	TaxCountry *string           `json:"taxCountry"`
	TaxState   *string           `json:"taxState"`
	Metadata   map[string]string `json:"metadata"`
}

// Pledge is the weak reference resolved for pledge-typed charges.
type Pledge struct {
	ID              string  `json:"id"`
	PaymentIntentID string  `json:"paymentIntentID"`
	OrderID         *string `json:"orderID"`
}
