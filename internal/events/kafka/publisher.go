package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/finbase/payment-ledger/internal/core/domain"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
)

// entryPostedEvent is the wire shape emitted after an entry becomes durable.
type entryPostedEvent struct {
	TransactionID        string    `json:"transactionID"`
	Type                 string    `json:"type"`
	Processor            string    `json:"processor"`
	Currency             string    `json:"currency"`
	Amount               int64     `json:"amount"`
	ChargeID             *string   `json:"chargeID,omitempty"`
	RefundID             *string   `json:"refundID,omitempty"`
	PaymentTransactionID *string   `json:"paymentTransactionID,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	EmittedAt            time.Time `json:"emittedAt"`
}

// Publisher emits entry-posted events to a Kafka topic, keyed by the
// transaction id so redeliveries of the same entry land in one partition.
type Publisher struct {
	writer *kafka.Writer
}

// Ensure Publisher implements the portssvc.EventPublisher interface
var _ portssvc.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a Kafka-backed event publisher.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishEntryPosted writes one event per posted entry. Failures are
// returned to the caller, which treats publishing as best effort.
func (p *Publisher) PublishEntryPosted(ctx context.Context, txn domain.Transaction) error {
	event := entryPostedEvent{
		TransactionID:        txn.TransactionID,
		Type:                 string(txn.Type),
		Processor:            string(txn.Processor),
		Currency:             txn.Currency,
		Amount:               txn.Amount,
		ChargeID:             txn.ChargeID,
		RefundID:             txn.RefundID,
		PaymentTransactionID: txn.PaymentTransactionID,
		CreatedAt:            txn.CreatedAt,
		EmittedAt:            time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal entry posted event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(txn.TransactionID),
		Value: data,
	})
}

// Close flushes and shuts down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
