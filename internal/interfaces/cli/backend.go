package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/receivables-ledger/internal/application/payments"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/receivables-ledger/pkg/config"
	"github.com/jhoicas/receivables-ledger/pkg/logger"
)

// PostgresBackend conecta a PostgreSQL la primera vez que un comando lo necesita.
type PostgresBackend struct {
	cfg  *config.Config
	log  *logger.Logger
	pool *pgxpool.Pool
}

// NewPostgresBackend construye el backend sin conectar.
func NewPostgresBackend(cfg *config.Config, log *logger.Logger) *PostgresBackend {
	return &PostgresBackend{cfg: cfg, log: log}
}

func (b *PostgresBackend) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := postgres.NewPool(ctx, b.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	b.log.Debug().Str("db", b.cfg.DB.DBName).Msg("conectado a PostgreSQL")
	b.pool = pool
	return pool, nil
}

// Ledger casos de uso sobre el pool; las escrituras usan transacciones con LEDGER_TX_TIMEOUT_SECONDS.
func (b *PostgresBackend) Ledger(ctx context.Context) (LedgerService, error) {
	pool, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	presenter, err := ledger.NewPresenter(b.cfg.Ledger.Locale, b.cfg.Ledger.Currency)
	if err != nil {
		return nil, err
	}
	return payments.NewUseCase(
		postgres.NewTxRunner(pool, b.cfg.Ledger.TxTimeout),
		postgres.NewInvoiceRepository(pool),
		postgres.NewCustomerAccountRepository(pool),
		postgres.NewReceiptRepository(pool),
		payments.Options{Presenter: presenter, Logger: b.log},
	), nil
}

// Migrate aplica las migraciones embebidas.
func (b *PostgresBackend) Migrate(ctx context.Context) (postgres.MigrationReport, error) {
	pool, err := b.connect(ctx)
	if err != nil {
		return postgres.MigrationReport{}, err
	}
	return postgres.Migrate(ctx, pool)
}

// Close cierra el pool si se abrió.
func (b *PostgresBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}
