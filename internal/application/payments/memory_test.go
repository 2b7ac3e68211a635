package payments_test

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// store almacenamiento en memoria con la misma semántica de versiones que postgres.
type store struct {
	invoices map[string]entity.Invoice
	accounts map[string]entity.CustomerAccount
	receipts map[string]entity.Receipt
	order    []string

	// failInvoice hace fallar la escritura de esa factura para probar el rollback.
	failInvoice string
}

func newStore() *store {
	return &store{
		invoices: map[string]entity.Invoice{},
		accounts: map[string]entity.CustomerAccount{},
		receipts: map[string]entity.Receipt{},
	}
}

func (s *store) clone() *store {
	c := newStore()
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	c.order = append([]string(nil), s.order...)
	c.failInvoice = s.failInvoice
	return c
}

func (s *store) replace(c *store) {
	s.invoices, s.accounts, s.receipts, s.order = c.invoices, c.accounts, c.receipts, c.order
}

// txRunner confirma la copia de trabajo solo si fn termina sin error.
type txRunner struct {
	s    *store
	runs int
}

func (r *txRunner) RunLedger(_ context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	accountRepo repository.CustomerAccountRepository,
	receiptRepo repository.ReceiptRepository,
) error) error {
	r.runs++
	tx := r.s.clone()
	if err := fn(&invoiceRepo{s: tx}, &accountRepo{s: tx}, &receiptRepo{s: tx}); err != nil {
		return err
	}
	r.s.replace(tx)
	return nil
}

type invoiceRepo struct{ s *store }

func (r *invoiceRepo) ListOpenByCustomer(_ context.Context, customerID string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		inv := inv
		if inv.CustomerID == customerID && inv.Payable() {
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *invoiceRepo) ListOpenByCustomerForUpdate(ctx context.Context, customerID string) ([]*entity.Invoice, error) {
	return r.ListOpenByCustomer(ctx, customerID)
}

func (r *invoiceRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, id := range ids {
		if inv, ok := r.s.invoices[id]; ok {
			out = append(out, &inv)
		}
	}
	return out, nil
}

func (r *invoiceRepo) GetByIDsForUpdate(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	return r.GetByIDs(ctx, ids)
}

func (r *invoiceRepo) ApplyChange(_ context.Context, ch ledger.InvoiceChange) error {
	if ch.InvoiceID == r.s.failInvoice {
		return errors.New("disk full")
	}
	inv, ok := r.s.invoices[ch.InvoiceID]
	if !ok || inv.Version != ch.ExpectedVersion {
		return domain.Stalef("factura %s", ch.InvoiceID)
	}
	inv.AmountPaid = ch.AmountPaid
	inv.Status = ch.Status
	inv.Version++
	r.s.invoices[inv.ID] = inv
	return nil
}

type accountRepo struct{ s *store }

func (r *accountRepo) Get(_ context.Context, customerID string) (*entity.CustomerAccount, error) {
	acc, ok := r.s.accounts[customerID]
	if !ok {
		return &entity.CustomerAccount{CustomerID: customerID, CreditOnAccount: decimal.Zero}, nil
	}
	return &acc, nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, customerID string) (*entity.CustomerAccount, error) {
	return r.Get(ctx, customerID)
}

func (r *accountRepo) ApplyChange(_ context.Context, ch ledger.AccountChange) error {
	acc, ok := r.s.accounts[ch.CustomerID]
	if !ok {
		if ch.ExpectedVersion != 0 {
			return domain.Stalef("cuenta %s", ch.CustomerID)
		}
		acc = entity.CustomerAccount{CustomerID: ch.CustomerID}
	} else if acc.Version != ch.ExpectedVersion {
		return domain.Stalef("cuenta %s", ch.CustomerID)
	}
	acc.CreditOnAccount = ch.CreditOnAccount
	acc.Version++
	r.s.accounts[ch.CustomerID] = acc
	return nil
}

type receiptRepo struct{ s *store }

func (r *receiptRepo) Create(_ context.Context, rc *entity.Receipt) error {
	if _, dup := r.s.receipts[rc.ID]; dup {
		return errors.New("duplicate receipt")
	}
	r.s.receipts[rc.ID] = *rc
	r.s.order = append(r.s.order, rc.ID)
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, id string) (*entity.Receipt, error) {
	rc, ok := r.s.receipts[id]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (r *receiptRepo) GetForUpdate(ctx context.Context, id string) (*entity.Receipt, error) {
	return r.GetByID(ctx, id)
}

func (r *receiptRepo) MarkReversed(_ context.Context, id string, at time.Time) error {
	rc, ok := r.s.receipts[id]
	if !ok || rc.Status != entity.ReceiptStatusApplied {
		return domain.Stalef("recibo %s", id)
	}
	rc.Status = entity.ReceiptStatusReversed
	rc.ReversedAt = &at
	r.s.receipts[id] = rc
	return nil
}

func (r *receiptRepo) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	for i := len(r.s.order) - 1; i >= 0; i-- {
		rc := r.s.receipts[r.s.order[i]]
		if rc.CustomerID == customerID {
			out = append(out, &rc)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
