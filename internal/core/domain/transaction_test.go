package domain_test

import (
	"testing"
	"time"

	"github.com/finbase/payment-ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_IsIncoming(t *testing.T) {
	tests := []struct {
		name        string
		transaction domain.Transaction
		want        bool
	}{
		{
			name:        "no side marker",
			transaction: domain.Transaction{Type: domain.Payment},
			want:        false,
		},
		{
			name:        "outgoing half",
			transaction: domain.Transaction{Type: domain.Balance, BalanceSide: sidePtr(domain.SideOutgoing)},
			want:        false,
		},
		{
			name:        "incoming half",
			transaction: domain.Transaction{Type: domain.Balance, BalanceSide: sidePtr(domain.SideIncoming)},
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.transaction.IsIncoming())
		})
	}
}

func TestTransaction_IsReversal(t *testing.T) {
	original := domain.Transaction{TransactionID: "txn_1", Type: domain.Balance}
	reversal := domain.Transaction{
		Type:                         domain.Balance,
		BalanceReversalTransactionID: &original.TransactionID,
	}

	assert.False(t, original.IsReversal())
	assert.True(t, reversal.IsReversal())
}

func TestBalancePair_Magnitude(t *testing.T) {
	pair := domain.BalancePair{
		CorrelationKey: "BALANCE_1",
		Outgoing:       domain.Transaction{Amount: -750},
		Incoming:       domain.Transaction{Amount: 750},
	}
	assert.Equal(t, int64(750), pair.Magnitude())
}

func TestBalancePair_CreatedAt(t *testing.T) {
	earlier := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Second)

	pair := domain.BalancePair{
		Outgoing: domain.Transaction{CreatedAt: later},
		Incoming: domain.Transaction{CreatedAt: earlier},
	}
	assert.Equal(t, earlier, pair.CreatedAt())
}

func sidePtr(s domain.BalanceSide) *domain.BalanceSide {
	return &s
}
