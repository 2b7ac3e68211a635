package repository

import (
	"context"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
)

// CustomerAccountRepository define el puerto de persistencia del saldo a favor del cliente.
type CustomerAccountRepository interface {
	// Get devuelve la cuenta; si no existe, una cuenta en cero con Version 0.
	Get(ctx context.Context, customerID string) (*entity.CustomerAccount, error)
	// GetForUpdate igual que Get bloqueando la fila.
	GetForUpdate(ctx context.Context, customerID string) (*entity.CustomerAccount, error)
	// ApplyChange escribe credit_on_account con verificación de versión (domain.ErrStaleState).
	ApplyChange(ctx context.Context, change ledger.AccountChange) error
}
