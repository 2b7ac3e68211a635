package ledger_test

import (
	"testing"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/allocation"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCustomer = "cust-1"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// Reloj fijo entre el vencimiento de ambas facturas de prueba.
func fixedClock() time.Time { return date("2024-01-15") }

func invoice(id, total, paid, due string) entity.Invoice {
	inv := entity.Invoice{
		ID:          id,
		CustomerID:  testCustomer,
		Number:      "FV-" + id,
		InvoiceDate: date(due).AddDate(0, -1, 0),
		DueDate:     date(due),
		TotalAmount: d(total),
		AmountPaid:  d(paid),
		Status:      entity.InvoiceStatusSent,
		Version:     3,
	}
	inv.Status = ledger.ResolveStatus(&inv, inv.AmountPaid, fixedClock())
	return inv
}

func snapshot(credit string, invoices ...entity.Invoice) ledger.Snapshot {
	return ledger.Snapshot{
		Account:  entity.CustomerAccount{CustomerID: testCustomer, CreditOnAccount: d(credit), Version: 7},
		Invoices: invoices,
	}
}

func targets(snap ledger.Snapshot) []entity.OutstandingInvoice {
	out := make([]entity.OutstandingInvoice, 0, len(snap.Invoices))
	for i := range snap.Invoices {
		out = append(out, snap.Invoices[i].AsOutstanding())
	}
	return out
}

func payment(amount string) ledger.Payment {
	return ledger.Payment{ReceiptID: "rc-1", CustomerID: testCustomer, PaymentMethodID: "cash", Amount: d(amount), CreditApplied: decimal.Zero}
}

func plan(t *testing.T, snap ledger.Snapshot, p ledger.Payment) allocation.Result {
	t.Helper()
	res, err := allocation.Allocate(p.Total(), targets(snap), nil)
	require.NoError(t, err)
	return res
}

// apply materializa un MutationSet sobre el snapshot, como haría el almacenamiento.
func apply(snap ledger.Snapshot, set ledger.MutationSet) ledger.Snapshot {
	out := ledger.Snapshot{Account: snap.Account, Invoices: make([]entity.Invoice, len(snap.Invoices))}
	copy(out.Invoices, snap.Invoices)
	for _, ch := range set.Invoices {
		for i := range out.Invoices {
			if out.Invoices[i].ID == ch.InvoiceID {
				out.Invoices[i].AmountPaid = ch.AmountPaid
				out.Invoices[i].Status = ch.Status
				out.Invoices[i].Version++
			}
		}
	}
	out.Account.CreditOnAccount = set.Account.CreditOnAccount
	out.Account.Version++
	return out
}

func changeFor(t *testing.T, set ledger.MutationSet, id string) ledger.InvoiceChange {
	t.Helper()
	for _, ch := range set.Invoices {
		if ch.InvoiceID == id {
			return ch
		}
	}
	t.Fatalf("sin cambio para la factura %s", id)
	return ledger.InvoiceChange{}
}

func TestApplyPayment_DosFacturasOrdenVencimiento(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "0", "2024-01-01"), invoice("inv-2", "50", "0", "2024-02-01"))
	p := payment("120")

	set, exp, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)

	ch1 := changeFor(t, set, "inv-1")
	assert.True(t, ch1.AmountPaid.Equal(d("100")))
	assert.Equal(t, entity.InvoiceStatusPaid, ch1.Status)
	assert.Equal(t, int64(3), ch1.ExpectedVersion)

	ch2 := changeFor(t, set, "inv-2")
	assert.True(t, ch2.AmountPaid.Equal(d("20")))
	assert.Equal(t, entity.InvoiceStatusPartial, ch2.Status)

	assert.True(t, set.Receipt.BalanceCredited.IsZero())
	assert.True(t, set.Account.CreditOnAccount.IsZero())
	assert.True(t, exp.PreviousBalance.Equal(d("150")))
	assert.True(t, exp.InvoicePayments.Equal(d("120")))
	assert.True(t, exp.NewBalance.Equal(d("30")))
	assert.Equal(t, entity.BalanceDebt, exp.BalanceType)
}

func TestApplyPayment_AbonoParcialSegundaFactura(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "100", "2024-01-01"), invoice("inv-2", "50", "0", "2024-02-01"))
	p := payment("30")

	set, exp, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)

	require.Len(t, set.Invoices, 1)
	ch := set.Invoices[0]
	assert.Equal(t, "inv-2", ch.InvoiceID)
	assert.True(t, ch.AmountPaid.Equal(d("30")))
	assert.Equal(t, entity.InvoiceStatusPartial, ch.Status)
	assert.True(t, exp.ExcessCredit.IsZero())
}

func TestApplyPayment_SobrepagoGeneraSaldoAFavor(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "0", "2024-02-01"))
	p := payment("200")

	set, exp, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)

	assert.Equal(t, entity.InvoiceStatusPaid, set.Invoices[0].Status)
	assert.True(t, set.Receipt.BalanceCredited.Equal(d("100")))
	assert.True(t, set.Account.CreditOnAccount.Equal(d("100")))
	assert.True(t, exp.ExcessCredit.Equal(d("100")))
	assert.True(t, exp.NewBalance.Equal(d("-100")))
	assert.Equal(t, entity.BalanceCredit, exp.BalanceType)

	// Invariante del recibo: Σ abonos + saldo a favor == total.
	assert.True(t, set.Receipt.InvoicePayments().Add(set.Receipt.BalanceCredited).Equal(set.Receipt.TotalAmount))
}

func TestApplyPayment_SaldoCero(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "80", "0", "2024-02-01"))
	p := payment("80")

	_, exp, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)
	assert.Equal(t, entity.BalanceZero, exp.BalanceType)
}

func TestApplyPayment_FacturaVencidaQuedaOverdue(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "0", "2024-01-01"))
	p := payment("40")

	set, _, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusOverdue, set.Invoices[0].Status)
}

func TestApplyPayment_Sobrepago(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "90", "2024-02-01"))
	// Plan construido a mano que ignora el saldo real pero declara el saldo vigente.
	alloc := allocation.Result{
		Items:       []entity.ReceiptItem{{InvoiceID: "inv-1", AmountPaid: d("20"), PreviousBalance: d("10")}},
		Allocated:   d("20"),
		Unallocated: decimal.Zero,
	}

	_, _, err := l.ApplyPayment(snap, payment("20"), alloc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOverpayment)
}

func TestApplyPayment_PlanDesactualizado(t *testing.T) {
	l := ledger.New(fixedClock)
	stale := snapshot("0", invoice("inv-1", "100", "0", "2024-02-01"))
	p := payment("50")
	alloc := plan(t, stale, p)

	fresh := snapshot("0", invoice("inv-1", "100", "30", "2024-02-01"))
	_, _, err := l.ApplyPayment(fresh, p, alloc)
	assert.ErrorIs(t, err, domain.ErrStaleState)
	assert.Equal(t, domain.KindStaleState, domain.KindOf(err))
}

func TestApplyPayment_Validaciones(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("10", invoice("inv-1", "100", "0", "2024-02-01"))

	t.Run("otro cliente", func(t *testing.T) {
		p := payment("10")
		p.CustomerID = "cust-2"
		_, _, err := l.ApplyPayment(snap, p, plan(t, snap, payment("10")))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("plan de otro importe", func(t *testing.T) {
		_, _, err := l.ApplyPayment(snap, payment("10"), plan(t, snap, payment("20")))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("saldo a favor insuficiente", func(t *testing.T) {
		p := payment("10")
		p.CreditApplied = d("10.01")
		_, _, err := l.ApplyPayment(snap, p, plan(t, snap, p))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("factura anulada", func(t *testing.T) {
		inv := invoice("inv-9", "100", "0", "2024-02-01")
		inv.Status = entity.InvoiceStatusCancelled
		s := snapshot("0", inv)
		alloc := allocation.Result{
			Items:     []entity.ReceiptItem{{InvoiceID: "inv-9", AmountPaid: d("10"), PreviousBalance: d("100")}},
			Allocated: d("10"), Unallocated: decimal.Zero,
		}
		_, _, err := l.ApplyPayment(s, payment("10"), alloc)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestApplyPayment_UsaSaldoAFavor(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("50", invoice("inv-1", "100", "0", "2024-02-01"))
	p := payment("20")
	p.CreditApplied = d("50")

	set, exp, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)

	assert.True(t, set.Receipt.TotalAmount.Equal(d("70")))
	assert.True(t, set.Receipt.BalanceIssued.Equal(d("50")))
	assert.True(t, set.Receipt.CashReceived().Equal(d("20")))
	assert.True(t, set.Account.CreditOnAccount.IsZero())
	// Neto anterior 100-50=50; solo el efectivo reduce el neto.
	assert.True(t, exp.PreviousBalance.Equal(d("50")))
	assert.True(t, exp.NewBalance.Equal(d("30")))
}

func TestReverse_RestauraExactamente(t *testing.T) {
	l := ledger.New(fixedClock)
	before := snapshot("5", invoice("inv-1", "100", "10", "2024-02-01"), invoice("inv-2", "50", "0", "2024-03-01"))
	p := payment("200")
	p.CreditApplied = d("5")

	set, _, err := l.ApplyPayment(before, p, plan(t, before, p))
	require.NoError(t, err)
	after := apply(before, set)

	rev, err := l.Reverse(after, set.Receipt)
	require.NoError(t, err)
	restored := apply(after, rev)

	for i := range before.Invoices {
		assert.True(t, before.Invoices[i].AmountPaid.Equal(restored.Invoices[i].AmountPaid), "factura %s", before.Invoices[i].ID)
		assert.Equal(t, before.Invoices[i].Status, restored.Invoices[i].Status)
	}
	assert.True(t, before.Account.CreditOnAccount.Equal(restored.Account.CreditOnAccount))
	assert.Equal(t, entity.ReceiptStatusReversed, rev.Receipt.Status)
	require.NotNil(t, rev.Receipt.ReversedAt)
}

func TestReverse_DobleReverso(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "0", "2024-02-01"))
	p := payment("40")
	set, _, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)
	after := apply(snap, set)

	rev, err := l.Reverse(after, set.Receipt)
	require.NoError(t, err)

	_, err = l.Reverse(apply(after, rev), rev.Receipt)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReverse_SaldoAFavorYaConsumido(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("0", invoice("inv-1", "100", "0", "2024-02-01"))
	p := payment("150")
	set, _, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)
	after := apply(snap, set)
	after.Account.CreditOnAccount = d("20") // consumido en otra operación

	_, err = l.Reverse(after, set.Receipt)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// El saldo a favor usado por el recibo compensa el excedente ya consumido.
func TestReverse_SaldoUsadoYExcedente(t *testing.T) {
	l := ledger.New(fixedClock)
	snap := snapshot("50", invoice("inv-1", "120", "0", "2024-02-01"))
	p := payment("100")
	p.CreditApplied = d("50")
	set, _, err := l.ApplyPayment(snap, p, plan(t, snap, p))
	require.NoError(t, err)
	require.True(t, set.Receipt.BalanceIssued.Equal(d("50")))
	require.True(t, set.Receipt.BalanceCredited.Equal(d("30")))

	after := apply(snap, set)
	after.Account.CreditOnAccount = d("20")

	rev, err := l.Reverse(after, set.Receipt)
	require.NoError(t, err)
	assert.True(t, rev.Account.CreditOnAccount.Equal(d("40")))
	assert.True(t, changeFor(t, rev, "inv-1").AmountPaid.IsZero())

	// Sin saldo a favor usado no hay con qué compensar.
	after.Account.CreditOnAccount = decimal.Zero
	receipt := set.Receipt
	receipt.BalanceIssued = d("20")
	_, err = l.Reverse(after, receipt)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReverse_FacturaSinAbonoSuficiente(t *testing.T) {
	l := ledger.New(fixedClock)
	receipt := entity.Receipt{
		ID: "rc-x", CustomerID: testCustomer, Status: entity.ReceiptStatusApplied,
		TotalAmount: d("30"), BalanceIssued: decimal.Zero, BalanceCredited: decimal.Zero,
		Items: []entity.ReceiptItem{{InvoiceID: "inv-1", AmountPaid: d("30"), PreviousBalance: d("100")}},
	}
	_, err := l.Reverse(snapshot("0", invoice("inv-1", "100", "10", "2024-02-01")), receipt)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestBalance(t *testing.T) {
	cancelled := invoice("inv-3", "999", "0", "2024-02-01")
	cancelled.Status = entity.InvoiceStatusCancelled
	snap := snapshot("30", invoice("inv-1", "100", "40", "2024-02-01"), invoice("inv-2", "50", "50", "2024-02-01"), cancelled)

	bal, typ := ledger.Balance(snap)
	assert.True(t, bal.Equal(d("30")))
	assert.Equal(t, entity.BalanceDebt, typ)
}

func TestResolveStatus(t *testing.T) {
	now := fixedClock()
	tests := []struct {
		name string
		inv  entity.Invoice
		paid string
		want entity.InvoiceStatus
	}{
		{"sin abonos", invoice("a", "100", "0", "2024-02-01"), "0", entity.InvoiceStatusSent},
		{"parcial", invoice("a", "100", "0", "2024-02-01"), "1", entity.InvoiceStatusPartial},
		{"pagada aunque vencida", invoice("a", "100", "0", "2024-01-01"), "100", entity.InvoiceStatusPaid},
		{"vencida sin abonos", invoice("a", "100", "0", "2024-01-01"), "0", entity.InvoiceStatusOverdue},
		{"vencida parcial", invoice("a", "100", "0", "2024-01-01"), "99.99", entity.InvoiceStatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.ResolveStatus(&tt.inv, d(tt.paid), now))
		})
	}

	draft := invoice("b", "100", "0", "2024-01-01")
	draft.Status = entity.InvoiceStatusDraft
	assert.Equal(t, entity.InvoiceStatusDraft, ledger.ResolveStatus(&draft, decimal.Zero, now))
}
