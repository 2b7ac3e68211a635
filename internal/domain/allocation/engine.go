// Package allocation decide cuánto de un pago se aplica a cada factura pendiente.
// Es puro: no modifica sus entradas y puede usarse para previsualizar antes de confirmar.
package allocation

import (
	"sort"

	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// ExplicitItem abono elegido por el llamador para una factura concreta.
type ExplicitItem struct {
	InvoiceID string
	Amount    decimal.Decimal
}

// Result plan de asignación: un ítem por factura tocada, en orden de aplicación.
// Invariante: Σ Items.AmountPaid + Unallocated == importe del pago.
type Result struct {
	Items       []entity.ReceiptItem
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

// Allocate reparte paymentAmount entre targets.
// Con explicit vacío aplica primero lo más antiguo (DueDate, luego InvoiceDate); con explicit
// respeta los importes y el orden del llamador. Lo que sobra queda como saldo a favor.
func Allocate(paymentAmount decimal.Decimal, targets []entity.OutstandingInvoice, explicit []ExplicitItem) (Result, error) {
	if err := money.ValidatePositive("importe del pago", paymentAmount); err != nil {
		return Result{}, err
	}
	for _, t := range targets {
		if err := money.Validate("saldo de la factura "+t.InvoiceID, t.Outstanding); err != nil {
			return Result{}, err
		}
	}
	if len(explicit) > 0 {
		return allocateExplicit(paymentAmount, targets, explicit)
	}
	return allocateOldestDueFirst(paymentAmount, targets), nil
}

func allocateExplicit(paymentAmount decimal.Decimal, targets []entity.OutstandingInvoice, explicit []ExplicitItem) (Result, error) {
	byID := make(map[string]entity.OutstandingInvoice, len(targets))
	for _, t := range targets {
		byID[t.InvoiceID] = t
	}

	seen := make(map[string]struct{}, len(explicit))
	res := Result{Items: make([]entity.ReceiptItem, 0, len(explicit)), Allocated: decimal.Zero}
	for _, it := range explicit {
		t, ok := byID[it.InvoiceID]
		if !ok {
			return Result{}, domain.Invalidf("la factura %s no está entre las pendientes del cliente", it.InvoiceID)
		}
		if _, dup := seen[it.InvoiceID]; dup {
			return Result{}, domain.Invalidf("la factura %s aparece más de una vez", it.InvoiceID)
		}
		seen[it.InvoiceID] = struct{}{}
		if t.Status == entity.InvoiceStatusDraft || t.Status == entity.InvoiceStatusCancelled {
			return Result{}, domain.Invalidf("la factura %s está en estado %s", it.InvoiceID, t.Status)
		}
		if err := money.ValidatePositive("abono a "+it.InvoiceID, it.Amount); err != nil {
			return Result{}, err
		}
		if it.Amount.GreaterThan(t.Outstanding) {
			return Result{}, domain.Invalidf("el abono %s a la factura %s supera su saldo %s",
				money.String(it.Amount), it.InvoiceID, money.String(t.Outstanding))
		}
		res.Allocated = res.Allocated.Add(it.Amount)
		res.Items = append(res.Items, entity.ReceiptItem{
			InvoiceID:       t.InvoiceID,
			InvoiceNumber:   t.Number,
			AmountPaid:      it.Amount,
			PreviousBalance: t.Outstanding,
		})
	}
	if res.Allocated.GreaterThan(paymentAmount) {
		return Result{}, domain.Invalidf("los abonos suman %s y el pago es de %s",
			money.String(res.Allocated), money.String(paymentAmount))
	}
	res.Unallocated = paymentAmount.Sub(res.Allocated)
	return res, nil
}

func allocateOldestDueFirst(paymentAmount decimal.Decimal, targets []entity.OutstandingInvoice) Result {
	ordered := SortOldestDueFirst(targets)

	remaining := paymentAmount
	res := Result{Items: make([]entity.ReceiptItem, 0, len(ordered)), Allocated: decimal.Zero}
	for _, t := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if t.Status == entity.InvoiceStatusDraft || t.Status == entity.InvoiceStatusCancelled {
			continue
		}
		if !t.Outstanding.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, t.Outstanding)
		remaining = remaining.Sub(amount)
		res.Allocated = res.Allocated.Add(amount)
		res.Items = append(res.Items, entity.ReceiptItem{
			InvoiceID:       t.InvoiceID,
			InvoiceNumber:   t.Number,
			AmountPaid:      amount,
			PreviousBalance: t.Outstanding,
		})
	}
	res.Unallocated = remaining
	return res
}

// SortOldestDueFirst devuelve una copia ordenada por DueDate, InvoiceDate y, para que el
// resultado sea determinista, por InvoiceID.
func SortOldestDueFirst(targets []entity.OutstandingInvoice) []entity.OutstandingInvoice {
	ordered := make([]entity.OutstandingInvoice, len(targets))
	copy(ordered, targets)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		return a.InvoiceID < b.InvoiceID
	})
	return ordered
}
