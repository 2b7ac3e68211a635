package repository

import (
	"context"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
)

// ReceiptRepository define el puerto de persistencia para recibos y sus ítems.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id string) (*entity.Receipt, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Receipt, error)
	// MarkReversed pasa el recibo de APPLIED a REVERSED; si ya no estaba APPLIED devuelve domain.ErrStaleState.
	MarkReversed(ctx context.Context, id string, at time.Time) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Receipt, error)
}
