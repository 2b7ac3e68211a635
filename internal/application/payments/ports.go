package payments

import (
	"context"

	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
)

// LedgerTxRunner ejecuta fn dentro de una transacción con repos de cartera ligados a ella.
// Si fn devuelve error se hace rollback y no queda ninguna escritura.
type LedgerTxRunner interface {
	RunLedger(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		accountRepo repository.CustomerAccountRepository,
		receiptRepo repository.ReceiptRepository,
	) error) error
}
