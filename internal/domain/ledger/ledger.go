// Package ledger aplica y reversa planes de asignación sobre las facturas y el saldo a favor
// de un cliente. No escribe nada: produce un MutationSet que el almacenamiento confirma en una
// única transacción.
package ledger

import (
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/allocation"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/money"
	"github.com/shopspring/decimal"
)

// Snapshot estado del cliente leído por el llamador (bajo el bloqueo del almacenamiento).
// Invoices debe incluir todas las facturas abiertas del cliente y las que toque la operación.
type Snapshot struct {
	Account  entity.CustomerAccount
	Invoices []entity.Invoice
}

func (s Snapshot) invoice(id string) (*entity.Invoice, bool) {
	for i := range s.Invoices {
		if s.Invoices[i].ID == id {
			return &s.Invoices[i], true
		}
	}
	return nil, false
}

// Payment datos del pago a aplicar.
// CreditApplied es saldo a favor existente que el cliente usa junto al efectivo (Amount).
type Payment struct {
	ReceiptID       string
	CustomerID      string
	PaymentMethodID string
	Reference       string
	Amount          decimal.Decimal
	CreditApplied   decimal.Decimal
}

// Total importe a asignar: efectivo más saldo a favor aplicado.
func (p Payment) Total() decimal.Decimal {
	return p.Amount.Add(p.CreditApplied)
}

// MutationKind tipo de operación de un MutationSet.
type MutationKind string

const (
	MutationApply   MutationKind = "APPLY"
	MutationReverse MutationKind = "REVERSE"
)

// InvoiceChange nuevo estado de cobro de una factura; ExpectedVersion es la versión leída.
type InvoiceChange struct {
	InvoiceID       string
	ExpectedVersion int64
	AmountPaid      decimal.Decimal
	Status          entity.InvoiceStatus
}

// AccountChange nuevo saldo a favor del cliente; ExpectedVersion es la versión leída.
type AccountChange struct {
	CustomerID      string
	ExpectedVersion int64
	CreditOnAccount decimal.Decimal
}

// MutationSet conjunto completo de escrituras de una operación. Se confirma todo o nada.
type MutationSet struct {
	Kind     MutationKind
	Receipt  entity.Receipt
	Invoices []InvoiceChange
	Account  AccountChange
}

// Ledger servicio de dominio de la cartera. El reloj es explícito para que el estado OVERDUE
// sea reproducible.
type Ledger struct {
	now func() time.Time
}

// New construye el servicio; clock nil usa time.Now.
func New(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{now: clock}
}

// Balance saldo neto del cliente: Σ saldos pendientes de facturas abiertas - saldo a favor.
func Balance(snap Snapshot) (decimal.Decimal, entity.BalanceType) {
	owed := decimal.Zero
	for i := range snap.Invoices {
		inv := &snap.Invoices[i]
		if inv.Closed() {
			continue
		}
		owed = owed.Add(inv.Outstanding())
	}
	balance := owed.Sub(snap.Account.CreditOnAccount)
	return balance, entity.BalanceTypeOf(balance)
}

// ApplyPayment valida el plan contra el snapshot y construye el recibo y las escrituras.
func (l *Ledger) ApplyPayment(snap Snapshot, p Payment, alloc allocation.Result) (MutationSet, entity.BalanceExplanation, error) {
	if p.CustomerID == "" || p.CustomerID != snap.Account.CustomerID {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("el pago y el snapshot son de clientes distintos")
	}
	if err := money.Validate("efectivo recibido", p.Amount); err != nil {
		return MutationSet{}, entity.BalanceExplanation{}, err
	}
	if err := money.Validate("saldo a favor aplicado", p.CreditApplied); err != nil {
		return MutationSet{}, entity.BalanceExplanation{}, err
	}
	if !p.Total().IsPositive() {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("el recibo no tiene importe")
	}
	if p.CreditApplied.GreaterThan(snap.Account.CreditOnAccount) {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("saldo a favor insuficiente: disponible %s, solicitado %s",
			money.String(snap.Account.CreditOnAccount), money.String(p.CreditApplied))
	}
	if !alloc.Allocated.Add(alloc.Unallocated).Equal(p.Total()) {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("el plan de asignación no corresponde al importe del recibo")
	}
	if alloc.Unallocated.IsNegative() {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("el plan de asignación tiene excedente negativo")
	}

	now := l.now()
	changes := make([]InvoiceChange, 0, len(alloc.Items))
	touched := make(map[string]struct{}, len(alloc.Items))
	applied := decimal.Zero
	for _, it := range alloc.Items {
		inv, ok := snap.invoice(it.InvoiceID)
		if !ok {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("factura %s desconocida", it.InvoiceID)
		}
		if _, dup := touched[it.InvoiceID]; dup {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("la factura %s aparece más de una vez", it.InvoiceID)
		}
		touched[it.InvoiceID] = struct{}{}
		if inv.CustomerID != p.CustomerID {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("la factura %s no pertenece al cliente", it.InvoiceID)
		}
		if inv.Closed() {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("la factura %s está en estado %s", it.InvoiceID, inv.Status)
		}
		if !it.AmountPaid.IsPositive() {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("abono no positivo a la factura %s", it.InvoiceID)
		}
		// El plan se calculó sobre otro estado de la factura.
		if !it.PreviousBalance.Equal(inv.Outstanding()) {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Stalef("el saldo de la factura %s cambió de %s a %s",
				it.InvoiceID, money.String(it.PreviousBalance), money.String(inv.Outstanding()))
		}
		newPaid := inv.AmountPaid.Add(it.AmountPaid)
		if newPaid.GreaterThan(inv.TotalAmount) {
			return MutationSet{}, entity.BalanceExplanation{}, domain.Overpaymentf("la factura %s quedaría con %s pagado sobre un total de %s",
				it.InvoiceID, money.String(newPaid), money.String(inv.TotalAmount))
		}
		applied = applied.Add(it.AmountPaid)
		changes = append(changes, InvoiceChange{
			InvoiceID:       inv.ID,
			ExpectedVersion: inv.Version,
			AmountPaid:      newPaid,
			Status:          ResolveStatus(inv, newPaid, now),
		})
	}
	if !applied.Equal(alloc.Allocated) {
		return MutationSet{}, entity.BalanceExplanation{}, domain.Invalidf("el total asignado no coincide con la suma de abonos")
	}

	previous, _ := Balance(snap)
	newBalance := previous.Sub(p.Amount)
	explanation := entity.BalanceExplanation{
		PreviousBalance: previous,
		PaymentReceived: p.Amount,
		InvoicePayments: applied,
		ExcessCredit:    alloc.Unallocated,
		CreditApplied:   p.CreditApplied,
		NewBalance:      newBalance,
		BalanceType:     entity.BalanceTypeOf(newBalance),
	}

	items := make([]entity.ReceiptItem, len(alloc.Items))
	copy(items, alloc.Items)
	set := MutationSet{
		Kind: MutationApply,
		Receipt: entity.Receipt{
			ID:              p.ReceiptID,
			CustomerID:      p.CustomerID,
			PaymentMethodID: p.PaymentMethodID,
			Reference:       p.Reference,
			TotalAmount:     p.Total(),
			Items:           items,
			BalanceIssued:   p.CreditApplied,
			BalanceCredited: alloc.Unallocated,
			PreviousBalance: previous,
			Status:          entity.ReceiptStatusApplied,
			CreatedAt:       now,
		},
		Invoices: changes,
		Account: AccountChange{
			CustomerID:      snap.Account.CustomerID,
			ExpectedVersion: snap.Account.Version,
			CreditOnAccount: snap.Account.CreditOnAccount.Sub(p.CreditApplied).Add(alloc.Unallocated),
		},
	}
	return set, explanation, nil
}

// Reverse construye las escrituras que deshacen exactamente un recibo aplicado.
func (l *Ledger) Reverse(snap Snapshot, receipt entity.Receipt) (MutationSet, error) {
	if receipt.Status == entity.ReceiptStatusReversed {
		return MutationSet{}, domain.InvalidStatef("el recibo %s ya fue reversado", receipt.ID)
	}
	if receipt.Status != entity.ReceiptStatusApplied {
		return MutationSet{}, domain.InvalidStatef("el recibo %s no está aplicado", receipt.ID)
	}
	if receipt.CustomerID != snap.Account.CustomerID {
		return MutationSet{}, domain.InvalidStatef("el recibo %s no corresponde al cliente del snapshot", receipt.ID)
	}

	now := l.now()
	changes := make([]InvoiceChange, 0, len(receipt.Items))
	for _, it := range receipt.Items {
		inv, ok := snap.invoice(it.InvoiceID)
		if !ok {
			return MutationSet{}, domain.InvalidStatef("la factura %s del recibo %s no existe", it.InvoiceID, receipt.ID)
		}
		newPaid := inv.AmountPaid.Sub(it.AmountPaid)
		if newPaid.IsNegative() {
			return MutationSet{}, domain.InvalidStatef("la factura %s tiene %s pagado y el recibo le abonó %s",
				it.InvoiceID, money.String(inv.AmountPaid), money.String(it.AmountPaid))
		}
		changes = append(changes, InvoiceChange{
			InvoiceID:       inv.ID,
			ExpectedVersion: inv.Version,
			AmountPaid:      newPaid,
			Status:          ResolveStatus(inv, newPaid, now),
		})
	}

	// El reverso devuelve el saldo a favor usado y retira el excedente generado.
	credit := snap.Account.CreditOnAccount
	newCredit := credit.Sub(receipt.BalanceCredited).Add(receipt.BalanceIssued)
	if newCredit.IsNegative() {
		return MutationSet{}, domain.InvalidStatef("el saldo a favor %s generado por el recibo %s ya fue consumido (disponible %s)",
			money.String(receipt.BalanceCredited), receipt.ID, money.String(credit))
	}

	reversed := receipt
	reversed.Status = entity.ReceiptStatusReversed
	reversed.ReversedAt = &now
	return MutationSet{
		Kind:     MutationReverse,
		Receipt:  reversed,
		Invoices: changes,
		Account: AccountChange{
			CustomerID:      snap.Account.CustomerID,
			ExpectedVersion: snap.Account.Version,
			CreditOnAccount: newCredit,
		},
	}, nil
}
