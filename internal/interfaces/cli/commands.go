package cli

import (
	"github.com/jhoicas/receivables-ledger/internal/application/dto"
	"github.com/jhoicas/receivables-ledger/internal/application/payments"
	"github.com/jhoicas/receivables-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

// NewRootCommand arma el árbol de comandos.
func NewRootCommand(app *App) *cobra.Command {
	if app.Log == nil {
		app.Log = logger.Nop()
	}
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Cartera de clientes: pagos, saldo a favor, reversos e impuestos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.AddCommand(
		migrateCommand(app),
		previewCommand(app),
		applyCommand(app),
		applyCreditCommand(app),
		reverseCommand(app),
		balanceCommand(app),
		agingCommand(app),
		receiptsCommand(app),
		receiptTaxCommand(app),
		totalsCommand(app),
	)
	return root
}

func migrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes del esquema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.Backend == nil {
				return usageError("sin almacenamiento configurado")
			}
			report, err := app.Backend.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			app.Log.Info().Int("applied", len(report.Applied)).Int64("version", report.Version).Msg("migraciones aplicadas")
			return app.print(report)
		},
	}
}

func previewCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Muestra cómo se asignaría un pago sin aplicarlo",
		Example: `  ledger preview --customer C1 --method CASH --amount 120
  ledger preview --customer C1 --method CASH --amount 30 --item INV-2=30`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := paymentRequest(cmd)
			if err != nil {
				return err
			}
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.Preview(cmd.Context(), in)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	addPaymentFlags(cmd)
	return cmd
}

func applyCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Aplica un pago y emite el recibo",
		Long: `Aplica un pago a las facturas pendientes del cliente. Sin --item se abona primero
lo que vence antes; el excedente queda como saldo a favor. Con --expect-invoice y
--expect-account (tomados de preview) el pago se rechaza si algo cambió entretanto.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := paymentRequest(cmd)
			if err != nil {
				return err
			}
			versions, _ := cmd.Flags().GetStringSlice("expect-invoice")
			if in.ExpectedInvoiceVersions, err = parseVersions(versions); err != nil {
				return err
			}
			if cmd.Flags().Changed("expect-account") {
				v, _ := cmd.Flags().GetInt64("expect-account")
				in.ExpectedAccountVersion = &v
			}
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.ApplyPayment(cmd.Context(), in)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	addPaymentFlags(cmd)
	cmd.Flags().StringSlice("expect-invoice", nil, "versión esperada FACTURA=VERSION (repetible)")
	cmd.Flags().Int64("expect-account", 0, "versión esperada de la cuenta del cliente")
	return cmd
}

func applyCreditCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply-credit",
		Short: "Usa saldo a favor existente para abonar facturas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				in  dto.ApplyCreditRequest
				err error
			)
			in.CustomerID, _ = cmd.Flags().GetString("customer")
			if in.Amount, err = decimalFlag(cmd, "amount"); err != nil {
				return err
			}
			items, _ := cmd.Flags().GetStringSlice("item")
			if in.Items, err = parseItems(items); err != nil {
				return err
			}
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.ApplyCredit(cmd.Context(), in)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	cmd.Flags().String("customer", "", "ID del cliente")
	cmd.Flags().String("amount", "", "saldo a favor a usar (vacío: todo lo que quepa)")
	cmd.Flags().StringSlice("item", nil, "abono explícito FACTURA=IMPORTE (repetible, en orden)")
	return cmd
}

func reverseCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse RECEIPT_ID",
		Short: "Reversa un recibo aplicado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.Reverse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
}

func balanceCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Saldo neto del cliente",
		RunE: func(cmd *cobra.Command, _ []string) error {
			customerID, _ := cmd.Flags().GetString("customer")
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.Balance(cmd.Context(), customerID)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	cmd.Flags().String("customer", "", "ID del cliente")
	return cmd
}

func agingCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Cartera por días de vencimiento",
		RunE: func(cmd *cobra.Command, _ []string) error {
			customerID, _ := cmd.Flags().GetString("customer")
			asOf, err := dateFlag(cmd, "as-of")
			if err != nil {
				return err
			}
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.Aging(cmd.Context(), customerID, asOf)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	cmd.Flags().String("customer", "", "ID del cliente")
	cmd.Flags().String("as-of", "", "fecha de corte AAAA-MM-DD (vacío: hoy)")
	return cmd
}

func receiptsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Lista los recibos del cliente",
		RunE: func(cmd *cobra.Command, _ []string) error {
			customerID, _ := cmd.Flags().GetString("customer")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.ListReceipts(cmd.Context(), customerID, dto.PageRequest{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	cmd.Flags().String("customer", "", "ID del cliente")
	cmd.Flags().Int("limit", 20, "máximo de recibos")
	cmd.Flags().Int("offset", 0, "desplazamiento")
	return cmd
}

func receiptTaxCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "receipt-tax RECEIPT_ID",
		Short: "Base e impuesto contenidos en un recibo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.ledger(cmd.Context())
			if err != nil {
				return err
			}
			out, err := svc.ReceiptTax(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
}

func totalsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Calcula descuento, impuesto y total de un subtotal o de renglones",
		Example: `  ledger totals --subtotal 1000 --tax-rate 16 --discount 10
  ledger totals --line 3:33.333:0:19 --line 1:200:10:5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rawLines, _ := cmd.Flags().GetStringArray("line"); len(rawLines) > 0 {
				if cmd.Flags().Changed("subtotal") || cmd.Flags().Changed("tax-rate") || cmd.Flags().Changed("discount") {
					return usageError("--line no se combina con --subtotal, --tax-rate ni --discount")
				}
				lines, err := parseLines(rawLines)
				if err != nil {
					return err
				}
				out, err := payments.LineTotals(dto.LineTotalsRequest{Lines: lines})
				if err != nil {
					return err
				}
				return app.print(out)
			}

			var (
				in  dto.TotalsRequest
				err error
			)
			if in.Subtotal, err = decimalFlag(cmd, "subtotal"); err != nil {
				return err
			}
			if in.TaxRate, err = decimalFlag(cmd, "tax-rate"); err != nil {
				return err
			}
			if in.DiscountPct, err = decimalFlag(cmd, "discount"); err != nil {
				return err
			}
			out, err := payments.Totals(in)
			if err != nil {
				return err
			}
			return app.print(out)
		},
	}
	cmd.Flags().String("subtotal", "", "subtotal del documento")
	cmd.Flags().String("tax-rate", "0", "tasa de impuesto en porcentaje")
	cmd.Flags().String("discount", "0", "descuento en porcentaje")
	cmd.Flags().StringArray("line", nil, "renglón CANTIDAD:PRECIO[:DESCUENTO[:IMPUESTO]] (repetible)")
	return cmd
}
