package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `id, customer_id, number, invoice_date, due_date,
	total_amount, tax_amount, amount_paid, status, version, created_at, updated_at`

// Abiertas: participan en la cartera y tienen saldo.
const openInvoicesQuery = `
	SELECT ` + invoiceColumns + `
	FROM invoices
	WHERE customer_id = $1
	  AND status NOT IN ('DRAFT', 'CANCELLED')
	  AND amount_paid < total_amount
	ORDER BY due_date, invoice_date, id`

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// ListOpenByCustomer facturas abiertas del cliente, de la más antigua a la más reciente.
func (r *InvoiceRepo) ListOpenByCustomer(ctx context.Context, customerID string) ([]*entity.Invoice, error) {
	return r.list(ctx, "list open invoices", openInvoicesQuery, customerID)
}

// ListOpenByCustomerForUpdate igual que ListOpenByCustomer bloqueando las filas.
func (r *InvoiceRepo) ListOpenByCustomerForUpdate(ctx context.Context, customerID string) ([]*entity.Invoice, error) {
	return r.list(ctx, "list open invoices for update", openInvoicesQuery+"\n\tFOR UPDATE", customerID)
}

// GetByIDs facturas por ID en cualquier estado; los IDs inexistentes se omiten.
func (r *InvoiceRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ANY($1) ORDER BY id`
	return r.list(ctx, "get invoices", query, ids)
}

// GetByIDsForUpdate igual que GetByIDs bloqueando las filas en orden de ID.
func (r *InvoiceRepo) GetByIDsForUpdate(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return r.list(ctx, "get invoices for update", query, ids)
}

// ApplyChange escribe el nuevo estado de cobro si nadie cambió la factura desde que se leyó.
func (r *InvoiceRepo) ApplyChange(ctx context.Context, ch ledger.InvoiceChange) error {
	query := `
		UPDATE invoices
		SET amount_paid = $2,
		    status      = $3,
		    version     = version + 1,
		    updated_at  = now()
		WHERE id = $1 AND version = $4`
	tag, err := r.q.Exec(ctx, query, ch.InvoiceID, ch.AmountPaid, string(ch.Status), ch.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update invoice payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Stalef("la factura %s cambió desde la versión %d", ch.InvoiceID, ch.ExpectedVersion)
	}
	return nil
}

func (r *InvoiceRepo) list(ctx context.Context, op, query string, arg any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.CustomerID, &inv.Number, &inv.InvoiceDate, &inv.DueDate,
		&inv.TotalAmount, &inv.TaxAmount, &inv.AmountPaid, &status, &inv.Version,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	inv.Status = entity.InvoiceStatus(status)
	return &inv, nil
}
