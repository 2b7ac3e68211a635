package ledger

import (
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ResolveStatus estado de cobro de una factura con amountPaid abonado, evaluado en now.
// DRAFT y CANCELLED se conservan; PAID si está saldada; OVERDUE si queda saldo y venció;
// PARTIAL si tiene abonos; SENT en otro caso.
func ResolveStatus(inv *entity.Invoice, amountPaid decimal.Decimal, now time.Time) entity.InvoiceStatus {
	if inv.Closed() {
		return inv.Status
	}
	switch {
	case amountPaid.Equal(inv.TotalAmount):
		return entity.InvoiceStatusPaid
	case inv.DueDate.Before(now):
		return entity.InvoiceStatusOverdue
	case amountPaid.IsPositive():
		return entity.InvoiceStatusPartial
	default:
		return entity.InvoiceStatusSent
	}
}
