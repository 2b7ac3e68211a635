package repository

import (
	"context"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
)

// InvoiceRepository define el puerto de persistencia para el estado de cobro de las facturas.
type InvoiceRepository interface {
	// ListOpenByCustomer facturas del cliente que no están en DRAFT ni CANCELLED y tienen saldo.
	ListOpenByCustomer(ctx context.Context, customerID string) ([]*entity.Invoice, error)
	// ListOpenByCustomerForUpdate igual que ListOpenByCustomer pero bloquea las filas (SELECT FOR UPDATE).
	ListOpenByCustomerForUpdate(ctx context.Context, customerID string) ([]*entity.Invoice, error)
	// GetByIDs facturas por ID, en cualquier estado.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error)
	// GetByIDsForUpdate igual que GetByIDs bloqueando las filas.
	GetByIDsForUpdate(ctx context.Context, ids []string) ([]*entity.Invoice, error)
	// ApplyChange escribe amount_paid y status si la versión coincide con ExpectedVersion;
	// si no coincide devuelve domain.ErrStaleState.
	ApplyChange(ctx context.Context, change ledger.InvoiceChange) error
}
