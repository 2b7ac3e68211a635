package ledger_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAging_Tramos(t *testing.T) {
	asOf := date("2024-06-30")
	draft := invoice("draft", "500", "0", "2024-01-01")
	draft.Status = entity.InvoiceStatusDraft

	invoices := []entity.Invoice{
		invoice("current", "100", "0", "2024-07-15"),
		invoice("d10", "50", "20", "2024-06-20"),
		invoice("d45", "40", "0", "2024-05-16"),
		invoice("d75", "30", "0", "2024-04-16"),
		invoice("d200", "20", "0", "2023-12-13"),
		invoice("paid", "70", "70", "2024-01-01"),
		draft,
	}

	r := ledger.Aging(invoices, asOf)

	assert.True(t, r.Current.Equal(d("100")))
	assert.True(t, r.Days1To30.Equal(d("30")))
	assert.True(t, r.Days31To60.Equal(d("40")))
	assert.True(t, r.Days61To90.Equal(d("30")))
	assert.True(t, r.Over90.Equal(d("20")))
	assert.True(t, r.Total.Equal(d("220")))
}

func TestAging_FraccionDeDiaCuentaComoVencida(t *testing.T) {
	asOf := date("2024-06-20").Add(10 * time.Hour)
	inv := invoice("inv-1", "100", "0", "2024-06-20")
	require.Equal(t, entity.InvoiceStatusOverdue, ledger.ResolveStatus(&inv, inv.AmountPaid, asOf))

	r := ledger.Aging([]entity.Invoice{inv}, asOf)
	assert.True(t, r.Current.IsZero())
	assert.True(t, r.Days1To30.Equal(d("100")))

	// 30 días y una hora ya es el tramo 31-60.
	r = ledger.Aging([]entity.Invoice{inv}, date("2024-07-20").Add(time.Hour))
	assert.True(t, r.Days31To60.Equal(d("100")))
}

func TestPresenter_Lines(t *testing.T) {
	p, err := ledger.NewPresenter("en-US", "USD")
	require.NoError(t, err)

	lines := p.Lines(entity.BalanceExplanation{
		PreviousBalance: d("100"),
		PaymentReceived: d("200"),
		InvoicePayments: d("100"),
		ExcessCredit:    d("100"),
		CreditApplied:   d("0"),
		NewBalance:      d("-100"),
		BalanceType:     entity.BalanceCredit,
	})

	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "Saldo anterior: USD"))
	assert.Contains(t, lines[0], "DEBT")
	assert.Contains(t, lines[1], "200.00")
	assert.Contains(t, lines[3], "Excedente")
	assert.Contains(t, lines[4], "CREDIT")
}

func TestNewPresenter_MonedaInvalida(t *testing.T) {
	_, err := ledger.NewPresenter("en-US", "XX")
	assert.Error(t, err)
}
