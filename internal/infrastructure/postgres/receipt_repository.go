package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
)

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

const receiptColumns = `id, customer_id, payment_method_id, reference, total_amount,
	balance_issued, balance_credited, previous_balance, status, created_at, reversed_at`

// ReceiptRepo recibos y sus ítems sobre PostgreSQL (usable con pool o tx).
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

// Create inserta cabecera e ítems en un solo batch.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO receipts (`+receiptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rc.ID, rc.CustomerID, rc.PaymentMethodID, rc.Reference, rc.TotalAmount,
		rc.BalanceIssued, rc.BalanceCredited, rc.PreviousBalance, string(rc.Status),
		rc.CreatedAt, rc.ReversedAt,
	)
	for i, it := range rc.Items {
		batch.Queue(`
			INSERT INTO receipt_items (receipt_id, line_no, invoice_id, invoice_number, amount_paid, previous_balance)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rc.ID, i+1, it.InvoiceID, it.InvoiceNumber, it.AmountPaid, it.PreviousBalance,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return fmt.Errorf("receipt %s already exists: %w", rc.ID, err)
			}
			return fmt.Errorf("insert receipt: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// GetByID obtiene el recibo con sus ítems; nil si no existe.
func (r *ReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`
	return r.get(ctx, "get receipt", query, id)
}

// GetForUpdate igual que GetByID bloqueando la cabecera.
func (r *ReceiptRepo) GetForUpdate(ctx context.Context, id string) (*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1 FOR UPDATE`
	return r.get(ctx, "get receipt for update", query, id)
}

// MarkReversed pasa el recibo de APPLIED a REVERSED.
func (r *ReceiptRepo) MarkReversed(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE receipts
		SET status = 'REVERSED', reversed_at = $2
		WHERE id = $1 AND status = 'APPLIED'`
	tag, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("reverse receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Stalef("el recibo %s ya no está aplicado", id)
	}
	return nil
}

// ListByCustomer recibos del cliente, más recientes primero.
func (r *ReceiptRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*entity.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	var (
		list []*entity.Receipt
		ids  []string
	)
	byID := make(map[string]*entity.Receipt)
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		list = append(list, rc)
		ids = append(ids, rc.ID)
		byID[rc.ID] = rc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}

	items, err := r.q.Query(ctx, `
		SELECT receipt_id, invoice_id, invoice_number, amount_paid, previous_balance
		FROM receipt_items WHERE receipt_id = ANY($1)
		ORDER BY receipt_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("list receipt items: %w", err)
	}
	defer items.Close()
	for items.Next() {
		var receiptID string
		var it entity.ReceiptItem
		if err := items.Scan(&receiptID, &it.InvoiceID, &it.InvoiceNumber, &it.AmountPaid, &it.PreviousBalance); err != nil {
			return nil, fmt.Errorf("scan receipt item: %w", err)
		}
		if rc, ok := byID[receiptID]; ok {
			rc.Items = append(rc.Items, it)
		}
	}
	return list, items.Err()
}

func (r *ReceiptRepo) get(ctx context.Context, op, query, id string) (*entity.Receipt, error) {
	rc, err := scanReceipt(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	rc.Items = items
	return rc, nil
}

func (r *ReceiptRepo) items(ctx context.Context, receiptID string) ([]entity.ReceiptItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT invoice_id, invoice_number, amount_paid, previous_balance
		FROM receipt_items WHERE receipt_id = $1
		ORDER BY line_no`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("list receipt items: %w", err)
	}
	defer rows.Close()
	var list []entity.ReceiptItem
	for rows.Next() {
		var it entity.ReceiptItem
		if err := rows.Scan(&it.InvoiceID, &it.InvoiceNumber, &it.AmountPaid, &it.PreviousBalance); err != nil {
			return nil, fmt.Errorf("scan receipt item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func scanReceipt(row pgx.Row) (*entity.Receipt, error) {
	var rc entity.Receipt
	var status string
	err := row.Scan(
		&rc.ID, &rc.CustomerID, &rc.PaymentMethodID, &rc.Reference, &rc.TotalAmount,
		&rc.BalanceIssued, &rc.BalanceCredited, &rc.PreviousBalance, &status,
		&rc.CreatedAt, &rc.ReversedAt,
	)
	if err != nil {
		return nil, err
	}
	rc.Status = entity.ReceiptStatus(status)
	return &rc, nil
}
