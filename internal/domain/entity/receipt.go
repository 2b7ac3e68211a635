package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus estado de un recibo de caja.
type ReceiptStatus string

const (
	ReceiptStatusApplied  ReceiptStatus = "APPLIED"
	ReceiptStatusReversed ReceiptStatus = "REVERSED"
)

// Receipt recibo de un pago del cliente. Inmutable tras su creación salvo el reverso.
//
// Invariante: Σ Items.AmountPaid + BalanceCredited == TotalAmount.
// TotalAmount = efectivo recibido + BalanceIssued (saldo a favor consumido para financiar el recibo).
type Receipt struct {
	ID              string
	CustomerID      string
	PaymentMethodID string
	Reference       string
	TotalAmount     decimal.Decimal
	Items           []ReceiptItem
	BalanceIssued   decimal.Decimal
	BalanceCredited decimal.Decimal
	PreviousBalance decimal.Decimal // Saldo neto del cliente antes del recibo (con signo)
	Status          ReceiptStatus
	CreatedAt       time.Time
	ReversedAt      *time.Time
}

// CashReceived parte del recibo pagada con dinero nuevo.
func (r *Receipt) CashReceived() decimal.Decimal {
	return r.TotalAmount.Sub(r.BalanceIssued)
}

// InvoicePayments suma de lo aplicado a facturas.
func (r *Receipt) InvoicePayments() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.AmountPaid)
	}
	return total
}

// InvoiceIDs facturas tocadas por el recibo, en orden de aplicación.
func (r *Receipt) InvoiceIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		ids = append(ids, it.InvoiceID)
	}
	return ids
}

// ReceiptItem abono de un recibo a una factura.
// PreviousBalance es el saldo pendiente de la factura al momento de asignar; no se recalcula.
type ReceiptItem struct {
	InvoiceID       string
	InvoiceNumber   string
	AmountPaid      decimal.Decimal
	PreviousBalance decimal.Decimal
}
