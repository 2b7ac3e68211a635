package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/receivables-ledger/internal/application/payments"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
)

var _ payments.LedgerTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTxRunner construye el runner con el pool. timeout 0 deja el contexto del llamador.
func NewTxRunner(pool *pgxpool.Pool, timeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, timeout: timeout}
}

// RunLedger inicia una transacción REPEATABLE READ, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. Un conflicto de serialización se reporta como ErrStaleState.
func (r *TxRunner) RunLedger(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	accountRepo repository.CustomerAccountRepository,
	receiptRepo repository.ReceiptRepository,
) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return domain.Persistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	invoiceRepo := NewInvoiceRepository(tx)
	accountRepo := NewCustomerAccountRepository(tx)
	receiptRepo := NewReceiptRepository(tx)

	if err := fn(invoiceRepo, accountRepo, receiptRepo); err != nil {
		if isConcurrencyConflict(err) {
			return domain.Stalef("conflicto con otra transacción: %v", err)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isConcurrencyConflict(err) {
			return domain.Stalef("conflicto con otra transacción: %v", err)
		}
		return domain.Persistence("commit transaction", err)
	}
	return nil
}
