package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicateKey indicates that an insert collided with an idempotency key
// (charge id or refund id) that has already been posted. Callers should
// re-fetch and treat the event as already processed.
var ErrDuplicateKey = errors.New("idempotency key already posted")

// ErrNotSucceededRefund indicates a refund posting was attempted while the
// processor-reported refund status is not succeeded.
var ErrNotSucceededRefund = errors.New("refund is not succeeded")

// ErrNotCanceledRefund indicates a refund revert was attempted while the
// processor-reported refund status is not canceled.
var ErrNotCanceledRefund = errors.New("refund is not canceled")

// ErrRefundAlreadyPosted indicates a refund entry already exists for the
// refund id. Expected under webhook redelivery; treat as already handled.
var ErrRefundAlreadyPosted = errors.New("refund already posted")

// ErrRefundEntryMissing indicates a revert arrived before the refund entry
// was posted. Retry after the create event has been processed.
var ErrRefundEntryMissing = errors.New("refund entry does not exist")

// ErrInternal indicates an unexpected failure that should be surfaced for
// retry with backoff.
var ErrInternal = errors.New("internal error")

// PledgeNotFoundError is returned when a charge is marked as a pledge but the
// originating pledge cannot be resolved yet. Retryable: the pledge may simply
// not have been created at the time the charge event was delivered.
type PledgeNotFoundError struct {
	ChargeID        string
	PaymentIntentID string
}

func (e *PledgeNotFoundError) Error() string {
	return fmt.Sprintf("received pledge charge %s (%s) but no such pledge exists", e.ChargeID, e.PaymentIntentID)
}

// AppError wraps an underlying error with a stable message and a code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
