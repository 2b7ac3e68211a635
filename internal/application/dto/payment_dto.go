package dto

import "github.com/shopspring/decimal"

// PaymentRequest pago de un cliente a aplicar sobre su cartera.
// Items vacío: se asigna a lo más antiguo primero. Items con datos: se respetan importes y orden.
// Las versiones esperadas son opcionales y provienen de una previsualización previa.
type PaymentRequest struct {
	CustomerID              string               `json:"customer_id" validate:"required,max=64"`
	PaymentMethodID         string               `json:"payment_method_id" validate:"required,max=64"`
	Reference               string               `json:"reference,omitempty" validate:"max=120"`
	Amount                  decimal.Decimal      `json:"amount"`
	CreditToApply           decimal.Decimal      `json:"credit_to_apply"`
	Items                   []PaymentItemRequest `json:"items,omitempty" validate:"dive"`
	ExpectedInvoiceVersions map[string]int64     `json:"expected_invoice_versions,omitempty"`
	ExpectedAccountVersion  *int64               `json:"expected_account_version,omitempty"`
}

// PaymentItemRequest abono explícito a una factura.
type PaymentItemRequest struct {
	InvoiceID string          `json:"invoice_id" validate:"required,max=64"`
	Amount    decimal.Decimal `json:"amount"`
}

// ApplyCreditRequest aplica saldo a favor existente sin dinero nuevo.
// Amount cero usa todo el saldo a favor que quepa en las facturas pendientes.
type ApplyCreditRequest struct {
	CustomerID string               `json:"customer_id" validate:"required,max=64"`
	Amount     decimal.Decimal      `json:"amount"`
	Items      []PaymentItemRequest `json:"items,omitempty" validate:"dive"`
}

// ReceiptItemResponse abono de un recibo a una factura.
type ReceiptItemResponse struct {
	InvoiceID       string          `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
}

// BalanceExplanationResponse desglose del efecto del pago sobre el saldo del cliente.
type BalanceExplanationResponse struct {
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	PaymentReceived decimal.Decimal `json:"payment_received"`
	InvoicePayments decimal.Decimal `json:"invoice_payments"`
	ExcessCredit    decimal.Decimal `json:"excess_credit"`
	CreditApplied   decimal.Decimal `json:"credit_applied"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	BalanceType     string          `json:"balance_type"` // DEBT|CREDIT|ZERO
	Lines           []string        `json:"lines,omitempty"`
}

// AllocationPreviewResponse plan de asignación sin persistir.
// InvoiceVersions y AccountVersion se reenvían en PaymentRequest para detectar cambios concurrentes.
type AllocationPreviewResponse struct {
	CustomerID      string                     `json:"customer_id"`
	Items           []ReceiptItemResponse      `json:"items"`
	Allocated       decimal.Decimal            `json:"allocated"`
	Unallocated     decimal.Decimal            `json:"unallocated"`
	Explanation     BalanceExplanationResponse `json:"explanation"`
	InvoiceVersions map[string]int64           `json:"invoice_versions"`
	AccountVersion  int64                      `json:"account_version"`
}

// ReceiptResponse recibo aplicado o reversado.
type ReceiptResponse struct {
	ID              string                      `json:"id"`
	CustomerID      string                      `json:"customer_id"`
	PaymentMethodID string                      `json:"payment_method_id"`
	Reference       string                      `json:"reference,omitempty"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	BalanceIssued   decimal.Decimal             `json:"balance_issued"`
	BalanceCredited decimal.Decimal             `json:"balance_credited"`
	PreviousBalance decimal.Decimal             `json:"previous_balance"`
	Status          string                      `json:"status"` // APPLIED|REVERSED
	CreatedAt       string                      `json:"created_at"`
	ReversedAt      string                      `json:"reversed_at,omitempty"`
	Items           []ReceiptItemResponse       `json:"items"`
	Explanation     *BalanceExplanationResponse `json:"explanation,omitempty"`
}

// ReceiptListResponse página de recibos de un cliente.
type ReceiptListResponse struct {
	Items []ReceiptResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// BalanceResponse saldo neto del cliente.
type BalanceResponse struct {
	CustomerID       string          `json:"customer_id"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
	CreditOnAccount  decimal.Decimal `json:"credit_on_account"`
	Balance          decimal.Decimal `json:"balance"`
	BalanceType      string          `json:"balance_type"`
	OpenInvoices     int             `json:"open_invoices"`
	AccountVersion   int64           `json:"account_version"`
}

// AgingResponse cartera por antigüedad de vencimiento.
type AgingResponse struct {
	CustomerID string          `json:"customer_id"`
	AsOf       string          `json:"as_of"`
	Current    decimal.Decimal `json:"current"`
	Days1To30  decimal.Decimal `json:"days_1_30"`
	Days31To60 decimal.Decimal `json:"days_31_60"`
	Days61To90 decimal.Decimal `json:"days_61_90"`
	Over90     decimal.Decimal `json:"over_90"`
	Total      decimal.Decimal `json:"total"`
}

// TaxInformationResponse base e impuesto contenidos en los abonos de un recibo.
type TaxInformationResponse struct {
	ReceiptID     string          `json:"receipt_id"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}

// TotalsRequest cálculo de totales de un documento.
type TotalsRequest struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
}

// LineRequest renglón de cotización o factura.
type LineRequest struct {
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// LineTotalsRequest totales de un documento por renglones.
type LineTotalsRequest struct {
	Lines []LineRequest `json:"lines"`
}

// TotalsResponse resultado de ComputeTotals o ComputeLines.
type TotalsResponse struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
}
