// Package payments orquesta la aplicación de pagos a la cartera: carga el estado del cliente
// bajo bloqueo, delega el cálculo en los servicios de dominio y confirma el MutationSet
// resultante en una sola transacción.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jhoicas/receivables-ledger/internal/application/dto"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/domain/allocation"
	"github.com/jhoicas/receivables-ledger/internal/domain/entity"
	"github.com/jhoicas/receivables-ledger/internal/domain/ledger"
	"github.com/jhoicas/receivables-ledger/internal/domain/money"
	"github.com/jhoicas/receivables-ledger/internal/domain/repository"
	"github.com/jhoicas/receivables-ledger/internal/domain/tax"
	"github.com/jhoicas/receivables-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// CreditPaymentMethod medio de pago de los recibos financiados solo con saldo a favor.
const CreditPaymentMethod = "CREDIT_ON_ACCOUNT"

// Options dependencias opcionales. Los valores cero usan time.Now, uuid y un logger mudo.
type Options struct {
	Clock     func() time.Time
	NewID     func() string
	Presenter *ledger.Presenter
	Logger    *logger.Logger
}

// UseCase casos de uso de la cartera de un cliente.
type UseCase struct {
	txRunner    LedgerTxRunner
	invoiceRepo repository.InvoiceRepository
	accountRepo repository.CustomerAccountRepository
	receiptRepo repository.ReceiptRepository
	ledger      *ledger.Ledger
	presenter   *ledger.Presenter
	validate    *validator.Validate
	log         *logger.Logger
	now         func() time.Time
	newID       func() string
}

// NewUseCase construye el caso de uso. Los repos sueltos se usan para lecturas sin bloqueo;
// las escrituras pasan siempre por txRunner.
func NewUseCase(
	txRunner LedgerTxRunner,
	invoiceRepo repository.InvoiceRepository,
	accountRepo repository.CustomerAccountRepository,
	receiptRepo repository.ReceiptRepository,
	opts Options,
) *UseCase {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &UseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		receiptRepo: receiptRepo,
		ledger:      ledger.New(opts.Clock),
		presenter:   opts.Presenter,
		validate:    validator.New(),
		log:         opts.Logger.WithComponent("payments"),
		now:         opts.Clock,
		newID:       opts.NewID,
	}
}

// Preview calcula la asignación y el efecto sobre el saldo sin escribir nada.
// Las versiones devueltas pueden enviarse en ApplyPayment para exigir que nada haya cambiado.
func (uc *UseCase) Preview(ctx context.Context, in dto.PaymentRequest) (*dto.AllocationPreviewResponse, error) {
	if err := uc.validatePayment(in); err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(ctx, uc.invoiceRepo, uc.accountRepo, in.CustomerID, false)
	if err != nil {
		return nil, err
	}
	alloc, payment, err := uc.plan(snap, in)
	if err != nil {
		return nil, err
	}
	set, explanation, err := uc.ledger.ApplyPayment(snap, payment, alloc)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]int64, len(set.Invoices))
	for _, ch := range set.Invoices {
		versions[ch.InvoiceID] = ch.ExpectedVersion
	}
	return &dto.AllocationPreviewResponse{
		CustomerID:      in.CustomerID,
		Items:           toReceiptItemsResponse(alloc.Items),
		Allocated:       alloc.Allocated,
		Unallocated:     alloc.Unallocated,
		Explanation:     toExplanationResponse(explanation, uc.presenter),
		InvoiceVersions: versions,
		AccountVersion:  snap.Account.Version,
	}, nil
}

// ApplyPayment aplica un pago: crea el recibo, actualiza las facturas y el saldo a favor.
// Todo o nada; ante StaleState el llamador puede volver a previsualizar y reintentar.
func (uc *UseCase) ApplyPayment(ctx context.Context, in dto.PaymentRequest) (*dto.ReceiptResponse, error) {
	if err := uc.validatePayment(in); err != nil {
		return nil, err
	}

	var (
		set         ledger.MutationSet
		explanation entity.BalanceExplanation
	)
	err := uc.txRunner.RunLedger(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		accountRepo repository.CustomerAccountRepository,
		receiptRepo repository.ReceiptRepository,
	) error {
		snap, err := loadSnapshot(ctx, invoiceRepo, accountRepo, in.CustomerID, true)
		if err != nil {
			return err
		}
		if err := checkExpectedVersions(in, snap); err != nil {
			return err
		}
		alloc, payment, err := uc.plan(snap, in)
		if err != nil {
			return err
		}
		set, explanation, err = uc.ledger.ApplyPayment(snap, payment, alloc)
		if err != nil {
			return err
		}
		return persist(ctx, set, invoiceRepo, accountRepo, receiptRepo)
	})
	if err != nil {
		uc.logFailure("aplicar pago", in.CustomerID, err)
		return nil, err
	}

	uc.log.WithCustomer(set.Receipt.CustomerID).Info().
		Str("receipt_id", set.Receipt.ID).
		Str("total", money.String(set.Receipt.TotalAmount)).
		Str("balance_credited", money.String(set.Receipt.BalanceCredited)).
		Int("invoices", len(set.Invoices)).
		Msg("recibo aplicado")

	out := toReceiptResponse(&set.Receipt)
	exp := toExplanationResponse(explanation, uc.presenter)
	out.Explanation = &exp
	return &out, nil
}

// ApplyCredit usa saldo a favor existente para abonar facturas pendientes, sin dinero nuevo.
func (uc *UseCase) ApplyCredit(ctx context.Context, in dto.ApplyCreditRequest) (*dto.ReceiptResponse, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if err := money.Validate("saldo a favor a aplicar", in.Amount); err != nil {
		return nil, err
	}

	var (
		set         ledger.MutationSet
		explanation entity.BalanceExplanation
	)
	err := uc.txRunner.RunLedger(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		accountRepo repository.CustomerAccountRepository,
		receiptRepo repository.ReceiptRepository,
	) error {
		snap, err := loadSnapshot(ctx, invoiceRepo, accountRepo, in.CustomerID, true)
		if err != nil {
			return err
		}
		credit := snap.Account.CreditOnAccount
		if !credit.IsPositive() {
			return domain.Invalidf("el cliente %s no tiene saldo a favor", in.CustomerID)
		}

		explicit := explicitItems(in.Items)
		amount := in.Amount
		if amount.IsZero() {
			if len(explicit) > 0 {
				for _, it := range explicit {
					amount = amount.Add(it.Amount)
				}
			} else {
				amount = decimal.Min(credit, outstandingTotal(snap))
			}
		}
		if !amount.IsPositive() {
			return domain.Invalidf("el cliente %s no tiene facturas pendientes", in.CustomerID)
		}
		if len(explicit) == 0 && amount.GreaterThan(outstandingTotal(snap)) {
			return domain.Invalidf("el saldo a aplicar %s supera lo pendiente %s",
				money.String(amount), money.String(outstandingTotal(snap)))
		}

		payment := ledger.Payment{
			ReceiptID:       uc.newID(),
			CustomerID:      in.CustomerID,
			PaymentMethodID: CreditPaymentMethod,
			Amount:          decimal.Zero,
			CreditApplied:   amount,
		}
		alloc, err := allocation.Allocate(payment.Total(), targets(snap), explicit)
		if err != nil {
			return err
		}
		set, explanation, err = uc.ledger.ApplyPayment(snap, payment, alloc)
		if err != nil {
			return err
		}
		return persist(ctx, set, invoiceRepo, accountRepo, receiptRepo)
	})
	if err != nil {
		uc.logFailure("aplicar saldo a favor", in.CustomerID, err)
		return nil, err
	}

	uc.log.WithCustomer(set.Receipt.CustomerID).Info().
		Str("receipt_id", set.Receipt.ID).
		Str("credit_applied", money.String(set.Receipt.BalanceIssued)).
		Msg("saldo a favor aplicado")

	out := toReceiptResponse(&set.Receipt)
	exp := toExplanationResponse(explanation, uc.presenter)
	out.Explanation = &exp
	return &out, nil
}

// Reverse deshace exactamente un recibo aplicado.
func (uc *UseCase) Reverse(ctx context.Context, receiptID string) (*dto.ReceiptResponse, error) {
	if receiptID == "" {
		return nil, domain.Invalidf("falta el ID del recibo")
	}

	var set ledger.MutationSet
	err := uc.txRunner.RunLedger(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		accountRepo repository.CustomerAccountRepository,
		receiptRepo repository.ReceiptRepository,
	) error {
		rc, err := receiptRepo.GetForUpdate(ctx, receiptID)
		if err != nil {
			return domain.Persistence("leer recibo", err)
		}
		if rc == nil {
			return domain.InvalidStatef("el recibo %s no existe o nunca fue aplicado", receiptID)
		}

		acc, err := accountRepo.GetForUpdate(ctx, rc.CustomerID)
		if err != nil {
			return domain.Persistence("leer cuenta del cliente", err)
		}
		invoices, err := invoiceRepo.GetByIDsForUpdate(ctx, rc.InvoiceIDs())
		if err != nil {
			return domain.Persistence("leer facturas del recibo", err)
		}
		snap := newSnapshot(rc.CustomerID, acc, invoices)

		set, err = uc.ledger.Reverse(snap, *rc)
		if err != nil {
			return err
		}
		return persist(ctx, set, invoiceRepo, accountRepo, receiptRepo)
	})
	if err != nil {
		uc.logFailure("reversar recibo", receiptID, err)
		return nil, err
	}

	uc.log.WithCustomer(set.Receipt.CustomerID).Info().
		Str("receipt_id", set.Receipt.ID).
		Str("credit_on_account", money.String(set.Account.CreditOnAccount)).
		Msg("recibo reversado")

	out := toReceiptResponse(&set.Receipt)
	return &out, nil
}

// Balance saldo neto actual del cliente (lectura sin bloqueo).
func (uc *UseCase) Balance(ctx context.Context, customerID string) (*dto.BalanceResponse, error) {
	if customerID == "" {
		return nil, domain.Invalidf("falta el cliente")
	}
	snap, err := loadSnapshot(ctx, uc.invoiceRepo, uc.accountRepo, customerID, false)
	if err != nil {
		return nil, err
	}
	balance, kind := ledger.Balance(snap)
	return &dto.BalanceResponse{
		CustomerID:       customerID,
		OutstandingTotal: outstandingTotal(snap),
		CreditOnAccount:  snap.Account.CreditOnAccount,
		Balance:          balance,
		BalanceType:      string(kind),
		OpenInvoices:     len(targets(snap)),
		AccountVersion:   snap.Account.Version,
	}, nil
}

// Aging cartera del cliente por antigüedad de vencimiento a la fecha asOf (cero = hoy).
func (uc *UseCase) Aging(ctx context.Context, customerID string, asOf time.Time) (*dto.AgingResponse, error) {
	if customerID == "" {
		return nil, domain.Invalidf("falta el cliente")
	}
	if asOf.IsZero() {
		asOf = uc.now()
	}
	invoices, err := uc.invoiceRepo.ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.Persistence("listar facturas abiertas", err)
	}
	snap := newSnapshot(customerID, nil, invoices)
	out := toAgingResponse(customerID, ledger.Aging(snap.Invoices, asOf))
	return &out, nil
}

// ReceiptTax base e impuesto que corresponden a los abonos de un recibo.
func (uc *UseCase) ReceiptTax(ctx context.Context, receiptID string) (*dto.TaxInformationResponse, error) {
	rc, err := uc.receiptRepo.GetByID(ctx, receiptID)
	if err != nil {
		return nil, domain.Persistence("leer recibo", err)
	}
	if rc == nil {
		return nil, fmt.Errorf("recibo %s: %w", receiptID, domain.ErrNotFound)
	}
	invoices, err := uc.invoiceRepo.GetByIDs(ctx, rc.InvoiceIDs())
	if err != nil {
		return nil, domain.Persistence("leer facturas del recibo", err)
	}
	byID := make(map[string]*entity.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}

	shares := make([]tax.PaidShare, 0, len(rc.Items))
	for _, it := range rc.Items {
		inv, ok := byID[it.InvoiceID]
		if !ok {
			return nil, domain.InvalidStatef("la factura %s del recibo %s no existe", it.InvoiceID, rc.ID)
		}
		shares = append(shares, tax.PaidShare{
			AmountPaid:   it.AmountPaid,
			InvoiceTotal: inv.TotalAmount,
			InvoiceTax:   inv.TaxAmount,
		})
	}
	b, err := tax.ProrateReceipt(shares)
	if err != nil {
		return nil, err
	}
	return &dto.TaxInformationResponse{
		ReceiptID:     rc.ID,
		TaxableAmount: b.TaxableAmount,
		Tax:           b.Tax,
		Total:         b.Total,
	}, nil
}

// ListReceipts recibos del cliente, más recientes primero.
func (uc *UseCase) ListReceipts(ctx context.Context, customerID string, page dto.PageRequest) (*dto.ReceiptListResponse, error) {
	if customerID == "" {
		return nil, domain.Invalidf("falta el cliente")
	}
	page.DefaultPage()
	list, err := uc.receiptRepo.ListByCustomer(ctx, customerID, page.Limit, page.Offset)
	if err != nil {
		return nil, domain.Persistence("listar recibos", err)
	}
	out := &dto.ReceiptListResponse{
		Items: make([]dto.ReceiptResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, rc := range list {
		out.Items = append(out.Items, toReceiptResponse(rc))
	}
	return out, nil
}

// Totals subtotal, descuento, base, impuesto y total de un documento. No usa almacenamiento.
func Totals(in dto.TotalsRequest) (*dto.TotalsResponse, error) {
	t, err := tax.ComputeTotals(in.Subtotal, in.TaxRate, in.DiscountPct)
	if err != nil {
		return nil, err
	}
	return toTotalsResponse(t), nil
}

// LineTotals totales de un documento con descuento e impuesto por renglón. No usa almacenamiento.
func LineTotals(in dto.LineTotalsRequest) (*dto.TotalsResponse, error) {
	if len(in.Lines) == 0 {
		return nil, domain.Invalidf("el documento no tiene renglones")
	}
	lines := make([]tax.Line, 0, len(in.Lines))
	for _, ln := range in.Lines {
		lines = append(lines, tax.Line{
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			DiscountPct: ln.DiscountPct,
			TaxRate:     ln.TaxRate,
		})
	}
	t, err := tax.ComputeLines(lines)
	if err != nil {
		return nil, err
	}
	return toTotalsResponse(t), nil
}

func (uc *UseCase) validatePayment(in dto.PaymentRequest) error {
	if err := uc.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if err := money.Validate("importe del pago", in.Amount); err != nil {
		return err
	}
	return money.Validate("saldo a favor a aplicar", in.CreditToApply)
}

// plan asigna efectivo más saldo a favor sobre las facturas pendientes del snapshot.
func (uc *UseCase) plan(snap ledger.Snapshot, in dto.PaymentRequest) (allocation.Result, ledger.Payment, error) {
	payment := ledger.Payment{
		ReceiptID:       uc.newID(),
		CustomerID:      in.CustomerID,
		PaymentMethodID: in.PaymentMethodID,
		Reference:       in.Reference,
		Amount:          in.Amount,
		CreditApplied:   in.CreditToApply,
	}
	alloc, err := allocation.Allocate(payment.Total(), targets(snap), explicitItems(in.Items))
	if err != nil {
		return allocation.Result{}, ledger.Payment{}, err
	}
	return alloc, payment, nil
}

func (uc *UseCase) logFailure(op, ref string, err error) {
	ev := uc.log.Warn()
	if domain.KindOf(err) == domain.KindPersistence {
		ev = uc.log.Error()
	}
	ev.Err(err).Str("kind", string(domain.KindOf(err))).Str("ref", ref).Msg(op)
}

// loadSnapshot lee cuenta y facturas abiertas del cliente. Con lock, la cuenta se bloquea antes
// que las facturas; Reverse sigue el mismo orden.
func loadSnapshot(
	ctx context.Context,
	invoiceRepo repository.InvoiceRepository,
	accountRepo repository.CustomerAccountRepository,
	customerID string,
	lock bool,
) (ledger.Snapshot, error) {
	var (
		acc      *entity.CustomerAccount
		invoices []*entity.Invoice
		err      error
	)
	if lock {
		acc, err = accountRepo.GetForUpdate(ctx, customerID)
	} else {
		acc, err = accountRepo.Get(ctx, customerID)
	}
	if err != nil {
		return ledger.Snapshot{}, domain.Persistence("leer cuenta del cliente", err)
	}
	if lock {
		invoices, err = invoiceRepo.ListOpenByCustomerForUpdate(ctx, customerID)
	} else {
		invoices, err = invoiceRepo.ListOpenByCustomer(ctx, customerID)
	}
	if err != nil {
		return ledger.Snapshot{}, domain.Persistence("listar facturas abiertas", err)
	}
	return newSnapshot(customerID, acc, invoices), nil
}

func newSnapshot(customerID string, acc *entity.CustomerAccount, invoices []*entity.Invoice) ledger.Snapshot {
	snap := ledger.Snapshot{
		Account:  entity.CustomerAccount{CustomerID: customerID, CreditOnAccount: decimal.Zero},
		Invoices: make([]entity.Invoice, 0, len(invoices)),
	}
	if acc != nil {
		snap.Account = *acc
		snap.Account.CustomerID = customerID
	}
	for _, inv := range invoices {
		if inv != nil {
			snap.Invoices = append(snap.Invoices, *inv)
		}
	}
	return snap
}

func targets(snap ledger.Snapshot) []entity.OutstandingInvoice {
	out := make([]entity.OutstandingInvoice, 0, len(snap.Invoices))
	for i := range snap.Invoices {
		if snap.Invoices[i].Payable() {
			out = append(out, snap.Invoices[i].AsOutstanding())
		}
	}
	return out
}

func outstandingTotal(snap ledger.Snapshot) decimal.Decimal {
	total := decimal.Zero
	for _, t := range targets(snap) {
		total = total.Add(t.Outstanding)
	}
	return total
}

func explicitItems(items []dto.PaymentItemRequest) []allocation.ExplicitItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]allocation.ExplicitItem, 0, len(items))
	for _, it := range items {
		out = append(out, allocation.ExplicitItem{InvoiceID: it.InvoiceID, Amount: it.Amount})
	}
	return out
}

// checkExpectedVersions compara las versiones de una previsualización con las leídas bajo bloqueo.
func checkExpectedVersions(in dto.PaymentRequest, snap ledger.Snapshot) error {
	if in.ExpectedAccountVersion != nil && *in.ExpectedAccountVersion != snap.Account.Version {
		return domain.Stalef("la cuenta del cliente %s cambió (versión %d, esperada %d)",
			in.CustomerID, snap.Account.Version, *in.ExpectedAccountVersion)
	}
	if len(in.ExpectedInvoiceVersions) == 0 {
		return nil
	}
	current := make(map[string]int64, len(snap.Invoices))
	for i := range snap.Invoices {
		current[snap.Invoices[i].ID] = snap.Invoices[i].Version
	}
	for id, want := range in.ExpectedInvoiceVersions {
		got, ok := current[id]
		if !ok {
			return domain.Stalef("la factura %s ya no está pendiente", id)
		}
		if got != want {
			return domain.Stalef("la factura %s cambió (versión %d, esperada %d)", id, got, want)
		}
	}
	return nil
}

// persist escribe el MutationSet con los repos de la transacción en curso.
func persist(
	ctx context.Context,
	set ledger.MutationSet,
	invoiceRepo repository.InvoiceRepository,
	accountRepo repository.CustomerAccountRepository,
	receiptRepo repository.ReceiptRepository,
) error {
	switch set.Kind {
	case ledger.MutationApply:
		if err := receiptRepo.Create(ctx, &set.Receipt); err != nil {
			return domain.Persistence("crear recibo", err)
		}
	case ledger.MutationReverse:
		if set.Receipt.ReversedAt == nil {
			return domain.InvalidStatef("el recibo %s no tiene fecha de reverso", set.Receipt.ID)
		}
		if err := receiptRepo.MarkReversed(ctx, set.Receipt.ID, *set.Receipt.ReversedAt); err != nil {
			return domain.Persistence("marcar recibo reversado", err)
		}
	default:
		return fmt.Errorf("tipo de mutación desconocido %q", set.Kind)
	}
	for _, ch := range set.Invoices {
		if err := invoiceRepo.ApplyChange(ctx, ch); err != nil {
			return domain.Persistence("actualizar factura "+ch.InvoiceID, err)
		}
	}
	if err := accountRepo.ApplyChange(ctx, set.Account); err != nil {
		return domain.Persistence("actualizar saldo a favor", err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Invalidf("el campo %s no cumple la regla %s", fe.Namespace(), fe.Tag())
	}
	return domain.Invalidf("%v", err)
}
