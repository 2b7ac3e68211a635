package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/application/dto"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, usageError("--%s no es un importe válido: %q", name, raw)
	}
	return v, nil
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, usageError("--%s debe tener formato AAAA-MM-DD: %q", name, raw)
	}
	return t, nil
}

// parseItems "inv1=30,inv2=12.50" -> abonos explícitos en el orden dado.
func parseItems(raw []string) ([]dto.PaymentItemRequest, error) {
	out := make([]dto.PaymentItemRequest, 0, len(raw))
	for _, kv := range raw {
		id, amount, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, usageError("--item debe ser FACTURA=IMPORTE: %q", kv)
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, usageError("importe inválido en --item %q", kv)
		}
		out = append(out, dto.PaymentItemRequest{InvoiceID: id, Amount: v})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// parseLines "3:33.333:0:19" -> cantidad, precio, descuento e impuesto; los dos últimos son opcionales.
func parseLines(raw []string) ([]dto.LineRequest, error) {
	out := make([]dto.LineRequest, 0, len(raw))
	for _, line := range raw {
		parts := strings.Split(line, ":")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, usageError("--line debe ser CANTIDAD:PRECIO[:DESCUENTO[:IMPUESTO]]: %q", line)
		}
		values := []decimal.Decimal{decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero}
		for i, p := range parts {
			v, err := decimal.NewFromString(p)
			if err != nil {
				return nil, usageError("valor inválido en --line %q", line)
			}
			values[i] = v
		}
		out = append(out, dto.LineRequest{Quantity: values[0], UnitPrice: values[1], DiscountPct: values[2], TaxRate: values[3]})
	}
	return out, nil
}

// parseVersions "inv1=2" -> versión esperada por factura.
func parseVersions(raw []string) (map[string]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(raw))
	for _, kv := range raw {
		id, ver, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, usageError("--expect-invoice debe ser FACTURA=VERSION: %q", kv)
		}
		n, err := strconv.ParseInt(ver, 10, 64)
		if err != nil {
			return nil, usageError("versión inválida en --expect-invoice %q", kv)
		}
		out[id] = n
	}
	return out, nil
}

func addPaymentFlags(cmd *cobra.Command) {
	cmd.Flags().String("customer", "", "ID del cliente")
	cmd.Flags().String("method", "", "medio de pago")
	cmd.Flags().String("reference", "", "referencia del pago")
	cmd.Flags().String("amount", "", "efectivo recibido")
	cmd.Flags().String("credit", "", "saldo a favor a usar junto al efectivo")
	cmd.Flags().StringSlice("item", nil, "abono explícito FACTURA=IMPORTE (repetible, en orden)")
}

func paymentRequest(cmd *cobra.Command) (dto.PaymentRequest, error) {
	var (
		in  dto.PaymentRequest
		err error
	)
	in.CustomerID, _ = cmd.Flags().GetString("customer")
	in.PaymentMethodID, _ = cmd.Flags().GetString("method")
	in.Reference, _ = cmd.Flags().GetString("reference")
	if in.Amount, err = decimalFlag(cmd, "amount"); err != nil {
		return in, err
	}
	if in.CreditToApply, err = decimalFlag(cmd, "credit"); err != nil {
		return in, err
	}
	items, _ := cmd.Flags().GetStringSlice("item")
	if in.Items, err = parseItems(items); err != nil {
		return in, err
	}
	return in, nil
}
