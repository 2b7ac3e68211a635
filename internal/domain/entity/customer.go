package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAccount saldo a favor del cliente no atado a ninguna factura.
// Lo custodia el almacenamiento; la cartera solo calcula el nuevo valor.
type CustomerAccount struct {
	CustomerID      string
	CreditOnAccount decimal.Decimal
	Version         int64 // 0 = aún no persistida
	UpdatedAt       time.Time
}

// BalanceType clasificación del saldo neto del cliente.
type BalanceType string

const (
	BalanceDebt   BalanceType = "DEBT"   // El cliente debe
	BalanceCredit BalanceType = "CREDIT" // El cliente tiene saldo a favor
	BalanceZero   BalanceType = "ZERO"
)

// BalanceTypeOf clasifica un saldo con signo: positivo DEBT, negativo CREDIT, cero ZERO.
func BalanceTypeOf(balance decimal.Decimal) BalanceType {
	switch balance.Sign() {
	case 1:
		return BalanceDebt
	case -1:
		return BalanceCredit
	default:
		return BalanceZero
	}
}

// BalanceExplanation explica el cambio de saldo producido por un recibo.
// NewBalance = PreviousBalance - PaymentReceived; el saldo a favor aplicado no cambia el neto.
type BalanceExplanation struct {
	PreviousBalance decimal.Decimal
	PaymentReceived decimal.Decimal
	InvoicePayments decimal.Decimal
	ExcessCredit    decimal.Decimal
	CreditApplied   decimal.Decimal
	NewBalance      decimal.Decimal
	BalanceType     BalanceType
}

// AgingReport saldos pendientes por antigüedad de vencimiento.
type AgingReport struct {
	AsOf       time.Time
	Current    decimal.Decimal // Aún no vencido
	Days1To30  decimal.Decimal
	Days31To60 decimal.Decimal
	Days61To90 decimal.Decimal
	Over90     decimal.Decimal
	Total      decimal.Decimal
}
