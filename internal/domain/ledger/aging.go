package ledger

import (
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Aging agrupa los saldos pendientes de facturas abiertas por días de vencimiento a asOf.
func Aging(invoices []entity.Invoice, asOf time.Time) entity.AgingReport {
	report := entity.AgingReport{
		AsOf:       asOf,
		Current:    decimal.Zero,
		Days1To30:  decimal.Zero,
		Days31To60: decimal.Zero,
		Days61To90: decimal.Zero,
		Over90:     decimal.Zero,
		Total:      decimal.Zero,
	}
	for i := range invoices {
		inv := &invoices[i]
		if !inv.Payable() {
			continue
		}
		outstanding := inv.Outstanding()
		days := daysPastDue(inv.DueDate, asOf)
		switch {
		case days <= 0:
			report.Current = report.Current.Add(outstanding)
		case days <= 30:
			report.Days1To30 = report.Days1To30.Add(outstanding)
		case days <= 60:
			report.Days31To60 = report.Days31To60.Add(outstanding)
		case days <= 90:
			report.Days61To90 = report.Days61To90.Add(outstanding)
		default:
			report.Over90 = report.Over90.Add(outstanding)
		}
		report.Total = report.Total.Add(outstanding)
	}
	return report
}

// daysPastDue días de mora contados por día iniciado, igual que ResolveStatus:
// vencida por cualquier fracción de día ya cuenta como día 1.
func daysPastDue(due, asOf time.Time) int {
	late := asOf.Sub(due)
	if late <= 0 {
		return 0
	}
	days := int(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return days
}
