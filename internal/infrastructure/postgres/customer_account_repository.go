package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.CustomerAccountRepository = (*CustomerAccountRepo)(nil)

// CustomerAccountRepo saldo a favor por cliente sobre PostgreSQL (usable con pool o tx).
type CustomerAccountRepo struct {
	q Querier
}

// NewCustomerAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerAccountRepository(q Querier) *CustomerAccountRepo {
	return &CustomerAccountRepo{q: q}
}

// Get obtiene la cuenta; si no existe devuelve una en cero con versión 0.
func (r *CustomerAccountRepo) Get(ctx context.Context, customerID string) (*entity.CustomerAccount, error) {
	query := `
		SELECT customer_id, credit_on_account, version, updated_at
		FROM customer_accounts WHERE customer_id = $1`
	return r.get(ctx, "get customer account", query, customerID)
}

// GetForUpdate obtiene la cuenta y bloquea la fila (SELECT FOR UPDATE).
// Si la fila aún no existe no hay nada que bloquear: el INSERT de ApplyChange detecta la carrera.
func (r *CustomerAccountRepo) GetForUpdate(ctx context.Context, customerID string) (*entity.CustomerAccount, error) {
	query := `
		SELECT customer_id, credit_on_account, version, updated_at
		FROM customer_accounts WHERE customer_id = $1
		FOR UPDATE`
	return r.get(ctx, "get customer account for update", query, customerID)
}

// ApplyChange escribe el saldo a favor. Con versión esperada 0 crea la fila.
func (r *CustomerAccountRepo) ApplyChange(ctx context.Context, ch ledger.AccountChange) error {
	var (
		query string
		args  []any
	)
	if ch.ExpectedVersion == 0 {
		query = `
			INSERT INTO customer_accounts (customer_id, credit_on_account, version, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (customer_id) DO NOTHING`
		args = []any{ch.CustomerID, ch.CreditOnAccount}
	} else {
		query = `
			UPDATE customer_accounts
			SET credit_on_account = $2,
			    version           = version + 1,
			    updated_at        = now()
			WHERE customer_id = $1 AND version = $3`
		args = []any{ch.CustomerID, ch.CreditOnAccount, ch.ExpectedVersion}
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("write customer account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Stalef("la cuenta del cliente %s cambió desde la versión %d", ch.CustomerID, ch.ExpectedVersion)
	}
	return nil
}

func (r *CustomerAccountRepo) get(ctx context.Context, op, query, customerID string) (*entity.CustomerAccount, error) {
	var acc entity.CustomerAccount
	err := r.q.QueryRow(ctx, query, customerID).Scan(
		&acc.CustomerID, &acc.CreditOnAccount, &acc.Version, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.CustomerAccount{CustomerID: customerID, CreditOnAccount: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &acc, nil
}
