package ledger

import (
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Presenter da formato a explicaciones de saldo según moneda y locale.
type Presenter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewPresenter construye el presentador; locale BCP 47 y código ISO 4217.
func NewPresenter(locale, iso string) (*Presenter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, err
	}
	unit, err := currency.ParseISO(iso)
	if err != nil {
		return nil, err
	}
	return &Presenter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Amount formatea un importe con agrupación del locale, siempre con dos decimales.
func (p *Presenter) Amount(v decimal.Decimal) string {
	// Conversión a float solo para presentación; los valores comparados siguen en decimal.
	return p.printer.Sprintf("%v %v", p.unit, number.Decimal(v.InexactFloat64(), number.Scale(2)))
}

// Lines renglones de la explicación, en el orden en que se muestran en el recibo.
func (p *Presenter) Lines(e entity.BalanceExplanation) []string {
	lines := []string{
		p.printer.Sprintf("Saldo anterior: %s (%s)", p.Amount(e.PreviousBalance.Abs()), string(entity.BalanceTypeOf(e.PreviousBalance))),
		p.printer.Sprintf("Pago recibido: %s", p.Amount(e.PaymentReceived)),
	}
	if e.CreditApplied.IsPositive() {
		lines = append(lines, p.printer.Sprintf("Saldo a favor aplicado: %s", p.Amount(e.CreditApplied)))
	}
	lines = append(lines, p.printer.Sprintf("Aplicado a facturas: %s", p.Amount(e.InvoicePayments)))
	if e.ExcessCredit.IsPositive() {
		lines = append(lines, p.printer.Sprintf("Excedente como saldo a favor: %s", p.Amount(e.ExcessCredit)))
	}
	lines = append(lines, p.printer.Sprintf("Nuevo saldo: %s (%s)", p.Amount(e.NewBalance.Abs()), string(e.BalanceType)))
	return lines
}
