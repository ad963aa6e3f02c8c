package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finbase/payment-ledger/internal/apperrors"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
	"github.com/finbase/payment-ledger/internal/core/services"
	"github.com/finbase/payment-ledger/internal/dto"
	"github.com/finbase/payment-ledger/internal/events/kafka"
	"github.com/finbase/payment-ledger/internal/platform/config"
	"github.com/finbase/payment-ledger/internal/platform/logging"
	"github.com/finbase/payment-ledger/internal/repositories/database/pgsql"
	"github.com/finbase/payment-ledger/pkg/database"
)

// ledger_admin applies database migrations and exposes manual correction
// operations that bypass the normal event-driven flow.
func main() {
	reverseChargeID := flag.String("reverse-payment", "", "fully reverse all outstanding balance transfers of the payment posted for this charge id")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.IsProduction)
	slog.SetDefault(logger)

	ctx := logging.WithCtx(context.Background(), logger)

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		os.Exit(1)
	}

	if *reverseChargeID == "" {
		logger.Info("No operation requested, exiting.")
		return
	}

	if err := reversePayment(ctx, cfg, dbPool, *reverseChargeID); err != nil {
		logger.Error("Failed to reverse payment",
			slog.String("charge_id", *reverseChargeID), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending up migrations using a short-lived
// database/sql connection on the pgx stdlib driver.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		return sourceErr
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		return dbErr
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// reversePayment looks up the payment entry for the charge and creates full
// reversal pairs for every balance-transfer group no reversal references yet.
func reversePayment(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, chargeID string) error {
	logger := logging.FromCtx(ctx)

	var publisher portssvc.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if cerr := kafkaPublisher.Close(); cerr != nil {
				logger.Error("Error closing Kafka publisher", slog.String("error", cerr.Error()))
			}
		}()
		publisher = kafkaPublisher
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(repos, offlineProcessorClient{}, publisher)

	paymentTxn, err := container.Payment.GetByChargeID(ctx, chargeID)
	if err != nil {
		return err
	}

	created, err := container.Refund.CreateReversalBalancesForPayment(ctx, paymentTxn)
	if err != nil {
		return err
	}

	logger.Info("Payment balance transfers reversed",
		slog.String("charge_id", chargeID),
		slog.String("payment_transaction_id", paymentTxn.TransactionID),
		slog.Int("reversal_pairs", len(created)))
	return nil
}

// offlineProcessorClient satisfies the processor port for operations that
// never reach the processor. Reversals only touch stored entries.
type offlineProcessorClient struct{}

func (offlineProcessorClient) GetInvoice(ctx context.Context, invoiceID string) (*dto.Invoice, error) {
	return nil, apperrors.ErrNotFound
}

func (offlineProcessorClient) GetBalanceTransaction(ctx context.Context, balanceTransactionID string) (*dto.BalanceTransaction, error) {
	return nil, apperrors.ErrNotFound
}

func (offlineProcessorClient) GetPledgeByPaymentIntent(ctx context.Context, paymentIntentID string) (*dto.Pledge, error) {
	return nil, apperrors.ErrNotFound
}
