package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/finbase/payment-ledger/internal/apperrors"
	"github.com/finbase/payment-ledger/internal/core/domain"
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	"github.com/finbase/payment-ledger/internal/models"
	"github.com/finbase/payment-ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `
	transaction_id, type, processor, currency, amount,
	account_currency, account_amount, tax_amount, tax_country, tax_state,
	charge_id, refund_id, order_id, pledge_id, account_id,
	payment_transaction_id, balance_correlation_key, balance_side,
	balance_reversal_transaction_id, transfer_id, risk_level, risk_score,
	customer_id, created_at`

const insertTransactionQuery = `
	INSERT INTO transactions (
		transaction_id, type, processor, currency, amount,
		account_currency, account_amount, tax_amount, tax_country, tax_state,
		charge_id, refund_id, order_id, pledge_id, account_id,
		payment_transaction_id, balance_correlation_key, balance_side,
		balance_reversal_transaction_id, transfer_id, risk_level, risk_score,
		customer_id, incurred_by_transaction_id, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25);
`

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for ledger entries.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxTransactionRepository implements portsrepo.TransactionRepositoryFacade
var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

// SaveTransaction persists one entry and its fee children atomically.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	return r.SaveTransactions(ctx, []domain.Transaction{txn})
}

// SaveTransactions persists a set of entries (and their fee children)
// all-or-nothing inside one database transaction. Unique-index violations on
// the idempotency columns surface as apperrors.ErrDuplicateKey with nothing
// committed.
func (r *PgxTransactionRepository) SaveTransactions(ctx context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range txns {
			queueTransactionInsert(batch, txns[i], nil)
			for j := range txns[i].IncurredTransactions {
				queueTransactionInsert(batch, txns[i].IncurredTransactions[j], &txns[i].TransactionID)
			}
		}

		br := tx.SendBatch(ctx, batch)
		return br.Close()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateKey, pgErr.ConstraintName)
		}
		return apperrors.NewAppError(500, "failed to save ledger entries", err)
	}
	return nil
}

func queueTransactionInsert(batch *pgx.Batch, txn domain.Transaction, incurredBy *string) {
	m := mapping.ToModelTransaction(txn)
	batch.Queue(insertTransactionQuery,
		m.TransactionID,
		m.Type,
		m.Processor,
		m.Currency,
		m.Amount,
		m.AccountCurrency,
		m.AccountAmount,
		m.TaxAmount,
		m.TaxCountry,
		m.TaxState,
		m.ChargeID,
		m.RefundID,
		m.OrderID,
		m.PledgeID,
		m.AccountID,
		m.PaymentTransactionID,
		m.BalanceCorrelationKey,
		m.BalanceSide,
		m.BalanceReversalTransactionID,
		m.TransferID,
		m.RiskLevel,
		m.RiskScore,
		m.CustomerID,
		incurredBy,
		m.CreatedAt,
	)
}

// FindByChargeID retrieves the payment entry posted for a charge id.
func (r *PgxTransactionRepository) FindByChargeID(ctx context.Context, chargeID string) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND charge_id = $2;`
	return r.findOne(ctx, query, string(domain.Payment), chargeID)
}

// FindByRefundID retrieves the refund entry posted for a refund id.
func (r *PgxTransactionRepository) FindByRefundID(ctx context.Context, refundID string) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE type = $1 AND refund_id = $2;`
	return r.findOne(ctx, query, string(domain.Refund), refundID)
}

func (r *PgxTransactionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Transaction, error) {
	row := r.Pool.QueryRow(ctx, query, args...)
	m, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to query ledger entry", err)
	}
	txn := mapping.ToDomainTransaction(*m)
	return &txn, nil
}

// FindBalancePairsForPayment retrieves the original balance-transfer pairs
// tied to a payment, grouped by correlation key, ordered by creation time.
func (r *PgxTransactionRepository) FindBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions
		WHERE payment_transaction_id = $1
		  AND type = $2
		  AND balance_reversal_transaction_id IS NULL
		ORDER BY created_at, transaction_id;`
	return r.queryPairs(ctx, query, paymentTransactionID, string(domain.Balance))
}

// FindUnreversedBalancePairsForPayment retrieves the payment's balance pairs
// that no reversal entry points at yet.
func (r *PgxTransactionRepository) FindUnreversedBalancePairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	query := `SELECT` + transactionColumns + `
		FROM transactions t
		WHERE t.payment_transaction_id = $1
		  AND t.type = $2
		  AND t.balance_reversal_transaction_id IS NULL
		  AND NOT EXISTS (
			SELECT 1 FROM transactions rev
			WHERE rev.balance_reversal_transaction_id = t.transaction_id
		  )
		ORDER BY t.created_at, t.transaction_id;`
	return r.queryPairs(ctx, query, paymentTransactionID, string(domain.Balance))
}

// FindReversalPairsForPayment retrieves the reversal pairs pointing into the
// payment's balance groups that have not themselves been reversed.
func (r *PgxTransactionRepository) FindReversalPairsForPayment(ctx context.Context, paymentTransactionID string) ([]domain.BalancePair, error) {
	query := `SELECT` + qualifiedTransactionColumns("t") + `
		FROM transactions t
		JOIN transactions orig ON orig.transaction_id = t.balance_reversal_transaction_id
		WHERE orig.payment_transaction_id = $1
		  AND orig.type = $2
		  AND t.type = $2
		  AND NOT EXISTS (
			SELECT 1 FROM transactions rev
			WHERE rev.balance_reversal_transaction_id = t.transaction_id
		  )
		ORDER BY t.created_at, t.transaction_id;`
	return r.queryPairs(ctx, query, paymentTransactionID, string(domain.Balance))
}

func (r *PgxTransactionRepository) queryPairs(ctx context.Context, query string, args ...any) ([]domain.BalancePair, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query balance entries", err)
	}
	defer rows.Close()

	entries := []models.Transaction{}
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance entry row", err)
		}
		entries = append(entries, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance entry rows", err)
	}

	return groupBalancePairs(mapping.ToDomainTransactionSlice(entries))
}

// groupBalancePairs assembles pair structs from entries ordered by creation
// time, preserving each group's first-appearance order. Every correlation key
// must resolve to exactly one outgoing and one incoming half.
func groupBalancePairs(entries []domain.Transaction) ([]domain.BalancePair, error) {
	order := []string{}
	groups := map[string]*domain.BalancePair{}

	for _, entry := range entries {
		if entry.BalanceCorrelationKey == nil || entry.BalanceSide == nil {
			return nil, apperrors.NewAppError(500,
				"balance entry "+entry.TransactionID+" is missing its correlation key or side marker", nil)
		}
		key := *entry.BalanceCorrelationKey
		pair, ok := groups[key]
		if !ok {
			pair = &domain.BalancePair{CorrelationKey: key}
			groups[key] = pair
			order = append(order, key)
		}
		switch *entry.BalanceSide {
		case domain.SideOutgoing:
			pair.Outgoing = entry
		case domain.SideIncoming:
			pair.Incoming = entry
		default:
			return nil, apperrors.NewAppError(500,
				"balance entry "+entry.TransactionID+" carries unknown side marker", nil)
		}
	}

	pairs := make([]domain.BalancePair, 0, len(order))
	for _, key := range order {
		pair := groups[key]
		if pair.Outgoing.TransactionID == "" || pair.Incoming.TransactionID == "" {
			return nil, apperrors.NewAppError(500,
				"balance correlation key "+key+" does not resolve to a complete pair", nil)
		}
		pairs = append(pairs, *pair)
	}
	return pairs, nil
}

func qualifiedTransactionColumns(alias string) string {
	return `
	` + alias + `.transaction_id, ` + alias + `.type, ` + alias + `.processor, ` + alias + `.currency, ` + alias + `.amount,
	` + alias + `.account_currency, ` + alias + `.account_amount, ` + alias + `.tax_amount, ` + alias + `.tax_country, ` + alias + `.tax_state,
	` + alias + `.charge_id, ` + alias + `.refund_id, ` + alias + `.order_id, ` + alias + `.pledge_id, ` + alias + `.account_id,
	` + alias + `.payment_transaction_id, ` + alias + `.balance_correlation_key, ` + alias + `.balance_side,
	` + alias + `.balance_reversal_transaction_id, ` + alias + `.transfer_id, ` + alias + `.risk_level, ` + alias + `.risk_score,
	` + alias + `.customer_id, ` + alias + `.created_at`
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID,
		&m.Type,
		&m.Processor,
		&m.Currency,
		&m.Amount,
		&m.AccountCurrency,
		&m.AccountAmount,
		&m.TaxAmount,
		&m.TaxCountry,
		&m.TaxState,
		&m.ChargeID,
		&m.RefundID,
		&m.OrderID,
		&m.PledgeID,
		&m.AccountID,
		&m.PaymentTransactionID,
		&m.BalanceCorrelationKey,
		&m.BalanceSide,
		&m.BalanceReversalTransactionID,
		&m.TransferID,
		&m.RiskLevel,
		&m.RiskScore,
		&m.CustomerID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
