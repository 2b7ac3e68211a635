// Package tax calcula descuentos, impuestos y totales. Los valores intermedios se conservan
// con precisión completa y se redondean a dos decimales (half-up) solo en el resultado.
package tax

import (
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// Breakdown base gravable, impuesto y total de un importe.
type Breakdown struct {
	TaxableAmount decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// Totals desglose completo subtotal → descuento → base → impuesto → total.
type Totals struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	TaxableAmount decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// Line renglón de cotización o factura.
type Line struct {
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	TaxRate     decimal.Decimal
}

// ComputeTax tax = amount * taxRate / 100; total = amount + tax.
func ComputeTax(amount, taxRate decimal.Decimal) (Breakdown, error) {
	if err := validateAmount("importe", amount); err != nil {
		return Breakdown{}, err
	}
	if err := money.ValidatePercentage("tasa de impuesto", taxRate); err != nil {
		return Breakdown{}, err
	}
	tax := money.Percent(amount, taxRate)
	return Breakdown{
		TaxableAmount: money.Round(amount),
		Tax:           money.Round(tax),
		Total:         money.Round(amount.Add(tax)),
	}, nil
}

// ComputeDiscount discount = amount * discountPct / 100.
func ComputeDiscount(amount, discountPct decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount("importe", amount); err != nil {
		return decimal.Zero, err
	}
	if err := money.ValidatePercentage("porcentaje de descuento", discountPct); err != nil {
		return decimal.Zero, err
	}
	return money.Round(money.Percent(amount, discountPct)), nil
}

// ComputeTotals aplica el descuento sobre el subtotal y el impuesto sobre la base resultante.
func ComputeTotals(subtotal, taxRate, discountPct decimal.Decimal) (Totals, error) {
	if err := validateAmount("subtotal", subtotal); err != nil {
		return Totals{}, err
	}
	if err := money.ValidatePercentage("tasa de impuesto", taxRate); err != nil {
		return Totals{}, err
	}
	if err := money.ValidatePercentage("porcentaje de descuento", discountPct); err != nil {
		return Totals{}, err
	}
	discount := money.Percent(subtotal, discountPct)
	taxable := subtotal.Sub(discount)
	tax := money.Percent(taxable, taxRate)
	return Totals{
		Subtotal:      money.Round(subtotal),
		Discount:      money.Round(discount),
		TaxableAmount: money.Round(taxable),
		Tax:           money.Round(tax),
		Total:         money.Round(taxable.Add(tax)),
	}, nil
}

// ComputeLines suma los renglones con precisión completa y redondea una sola vez.
// Cada renglón tiene su propio descuento y tasa de impuesto.
func ComputeLines(lines []Line) (Totals, error) {
	subtotal, discount, tax := decimal.Zero, decimal.Zero, decimal.Zero
	for i, ln := range lines {
		if ln.Quantity.IsNegative() || ln.UnitPrice.IsNegative() {
			return Totals{}, domain.Invalidf("renglón %d: cantidad y precio no pueden ser negativos", i+1)
		}
		if err := money.ValidatePercentage("descuento del renglón", ln.DiscountPct); err != nil {
			return Totals{}, err
		}
		if err := money.ValidatePercentage("impuesto del renglón", ln.TaxRate); err != nil {
			return Totals{}, err
		}
		gross := ln.Quantity.Mul(ln.UnitPrice)
		lineDiscount := money.Percent(gross, ln.DiscountPct)
		subtotal = subtotal.Add(gross)
		discount = discount.Add(lineDiscount)
		tax = tax.Add(money.Percent(gross.Sub(lineDiscount), ln.TaxRate))
	}
	taxable := subtotal.Sub(discount)
	return Totals{
		Subtotal:      money.Round(subtotal),
		Discount:      money.Round(discount),
		TaxableAmount: money.Round(taxable),
		Tax:           money.Round(tax),
		Total:         money.Round(taxable.Add(tax)),
	}, nil
}

// PaidShare abono de un recibo a una factura junto con la composición de la factura.
type PaidShare struct {
	AmountPaid   decimal.Decimal
	InvoiceTotal decimal.Decimal
	InvoiceTax   decimal.Decimal
}

// ProrateReceipt información tributaria de un recibo: a cada abono le corresponde la misma
// proporción de impuesto que tiene su factura. Los abonos a facturas con total cero no aportan.
func ProrateReceipt(shares []PaidShare) (Breakdown, error) {
	paid, tax := decimal.Zero, decimal.Zero
	for _, s := range shares {
		if err := validateAmount("abono", s.AmountPaid); err != nil {
			return Breakdown{}, err
		}
		if s.InvoiceTax.IsNegative() || s.InvoiceTax.GreaterThan(s.InvoiceTotal) {
			return Breakdown{}, domain.Invalidf("impuesto de la factura fuera de rango")
		}
		paid = paid.Add(s.AmountPaid)
		if s.InvoiceTotal.IsPositive() {
			tax = tax.Add(s.AmountPaid.Mul(s.InvoiceTax).Div(s.InvoiceTotal))
		}
	}
	return Breakdown{
		TaxableAmount: money.Round(paid.Sub(tax)),
		Tax:           money.Round(tax),
		Total:         money.Round(paid),
	}, nil
}

func validateAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.Invalidf("%s no puede ser negativo (%s)", field, amount.String())
	}
	return nil
}
