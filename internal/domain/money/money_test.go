package money_test

import (
	"errors"
	"testing"

	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"cero", "0", false},
		{"dos decimales", "10.25", false},
		{"ceros extra", "10.2500", false},
		{"tres decimales", "10.255", true},
		{"negativo", "-0.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := money.Validate("amount", decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePositive_RechazaCero(t *testing.T) {
	err := money.ValidatePositive("amount", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidatePercentage(t *testing.T) {
	assert.NoError(t, money.ValidatePercentage("tax", decimal.Zero))
	assert.NoError(t, money.ValidatePercentage("tax", decimal.NewFromInt(100)))
	assert.ErrorIs(t, money.ValidatePercentage("tax", decimal.NewFromInt(101)), domain.ErrInvalidInput)
	assert.ErrorIs(t, money.ValidatePercentage("tax", decimal.NewFromInt(-1)), domain.ErrInvalidInput)
}

func TestRound_HalfUp(t *testing.T) {
	assert.Equal(t, "0.13", money.String(money.Round(decimal.RequireFromString("0.125"))))
	assert.Equal(t, "0.12", money.String(money.Round(decimal.RequireFromString("0.1249"))))
	assert.Equal(t, "100.00", money.String(money.Round(decimal.RequireFromString("99.995"))))
}

func TestPercentYSum(t *testing.T) {
	got := money.Percent(decimal.NewFromInt(1000), decimal.NewFromInt(16))
	assert.True(t, got.Equal(decimal.NewFromInt(160)))
	assert.True(t, money.Sum(decimal.NewFromInt(1), money.MinorUnit).Equal(decimal.RequireFromString("1.01")))
}
