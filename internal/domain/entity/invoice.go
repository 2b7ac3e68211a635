package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de cobro de una factura.
type InvoiceStatus string

// Estados de una factura de venta.
const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Borrador, no exigible
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Emitida, sin abonos
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"   // Con abonos, saldo pendiente, no vencida
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // AmountPaid == TotalAmount
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Saldo pendiente y DueDate < ahora
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Anulada, no recibe pagos
)

// Invoice representa la cabecera de cobro de una factura.
// AmountPaid solo cambia por aplicación o reverso de recibos.
type Invoice struct {
	ID          string
	CustomerID  string
	Number      string
	InvoiceDate time.Time
	DueDate     time.Time
	TotalAmount decimal.Decimal
	TaxAmount   decimal.Decimal // Porción de impuestos incluida en TotalAmount
	AmountPaid  decimal.Decimal
	Status      InvoiceStatus
	Version     int64 // Token de concurrencia optimista, lo incrementa el almacenamiento
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding saldo pendiente: TotalAmount - AmountPaid.
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.TotalAmount.Sub(i.AmountPaid)
}

// Closed indica si la factura no participa en la cartera (borrador o anulada).
func (i *Invoice) Closed() bool {
	return i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusCancelled
}

// Payable indica si la factura puede recibir abonos.
func (i *Invoice) Payable() bool {
	return !i.Closed() && i.Outstanding().IsPositive()
}

// AsOutstanding proyecta la factura como destino de asignación.
func (i *Invoice) AsOutstanding() OutstandingInvoice {
	return OutstandingInvoice{
		InvoiceID:   i.ID,
		Number:      i.Number,
		InvoiceDate: i.InvoiceDate,
		DueDate:     i.DueDate,
		Outstanding: i.Outstanding(),
		Status:      i.Status,
	}
}

// OutstandingInvoice factura con saldo pendiente tal como la ve el motor de asignación.
type OutstandingInvoice struct {
	InvoiceID   string
	Number      string
	InvoiceDate time.Time
	DueDate     time.Time
	Outstanding decimal.Decimal
	Status      InvoiceStatus
}
