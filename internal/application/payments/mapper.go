package payments

import (
	"time"

	"github.com/jhoicas/receivables-ledger/internal/application/dto"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/domain/tax"
)

func toReceiptItemsResponse(items []entity.ReceiptItem) []dto.ReceiptItemResponse {
	out := make([]dto.ReceiptItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ReceiptItemResponse{
			InvoiceID:       it.InvoiceID,
			InvoiceNumber:   it.InvoiceNumber,
			AmountPaid:      it.AmountPaid,
			PreviousBalance: it.PreviousBalance,
		})
	}
	return out
}

func toReceiptResponse(r *entity.Receipt) dto.ReceiptResponse {
	out := dto.ReceiptResponse{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		PaymentMethodID: r.PaymentMethodID,
		Reference:       r.Reference,
		TotalAmount:     r.TotalAmount,
		BalanceIssued:   r.BalanceIssued,
		BalanceCredited: r.BalanceCredited,
		PreviousBalance: r.PreviousBalance,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		Items:           toReceiptItemsResponse(r.Items),
	}
	if r.ReversedAt != nil {
		out.ReversedAt = r.ReversedAt.Format(time.RFC3339)
	}
	return out
}

func toExplanationResponse(e entity.BalanceExplanation, p *ledger.Presenter) dto.BalanceExplanationResponse {
	out := dto.BalanceExplanationResponse{
		PreviousBalance: e.PreviousBalance,
		PaymentReceived: e.PaymentReceived,
		InvoicePayments: e.InvoicePayments,
		ExcessCredit:    e.ExcessCredit,
		CreditApplied:   e.CreditApplied,
		NewBalance:      e.NewBalance,
		BalanceType:     string(e.BalanceType),
	}
	if p != nil {
		out.Lines = p.Lines(e)
	}
	return out
}

func toAgingResponse(customerID string, r entity.AgingReport) dto.AgingResponse {
	return dto.AgingResponse{
		CustomerID: customerID,
		AsOf:       r.AsOf.Format("2006-01-02"),
		Current:    r.Current,
		Days1To30:  r.Days1To30,
		Days31To60: r.Days31To60,
		Days61To90: r.Days61To90,
		Over90:     r.Over90,
		Total:      r.Total,
	}
}

func toTotalsResponse(t tax.Totals) *dto.TotalsResponse {
	return &dto.TotalsResponse{
		Subtotal:      t.Subtotal,
		Discount:      t.Discount,
		TaxableAmount: t.TaxableAmount,
		Tax:           t.Tax,
		Total:         t.Total,
	}
}
