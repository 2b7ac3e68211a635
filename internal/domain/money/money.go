// Package money reúne las reglas de importes monetarios de la cartera: decimales con a lo sumo
// dos posiciones, nunca negativos, redondeo half-up solo al final de un cálculo.
package money

import (
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Places número de decimales de un importe (unidades menores).
const Places = 2

var (
	// MinorUnit la menor fracción representable (0.01).
	MinorUnit = decimal.New(1, -Places)

	hundred = decimal.NewFromInt(100)
)

// Validate exige un importe no negativo y sin más de dos decimales significativos.
func Validate(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.Invalidf("%s no puede ser negativo (%s)", field, amount.String())
	}
	if !amount.Equal(amount.Truncate(Places)) {
		return domain.Invalidf("%s admite a lo sumo %d decimales (%s)", field, Places, amount.String())
	}
	return nil
}

// ValidatePositive como Validate pero además exige un importe mayor que cero.
func ValidatePositive(field string, amount decimal.Decimal) error {
	if err := Validate(field, amount); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return domain.Invalidf("%s debe ser mayor que cero", field)
	}
	return nil
}

// ValidatePercentage exige un porcentaje en el rango [0, 100].
func ValidatePercentage(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return domain.Invalidf("%s fuera de rango [0, 100] (%s)", field, pct.String())
	}
	return nil
}

// Round redondea a dos decimales, mitad hacia arriba (los importes nunca son negativos).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Percent calcula amount * pct / 100 sin redondear.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Sum suma importes sin redondear.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String formatea con exactamente dos decimales.
func String(amount decimal.Decimal) string {
	return amount.StringFixed(Places)
}
