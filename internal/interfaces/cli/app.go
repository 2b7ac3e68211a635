// Package cli comandos de operador sobre la cartera. Cada comando imprime JSON en la salida
// estándar; los errores se imprimen como dto.ErrorResponse en la salida de errores.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/jhoicas/receivables-ledger/internal/application/dto"
	"github.com/jhoicas/receivables-ledger/internal/domain"
	"github.com/jhoicas/receivables-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/receivables-ledger/pkg/logger"
)

// LedgerService casos de uso que expone la CLI (implementado por *payments.UseCase).
type LedgerService interface {
	Preview(ctx context.Context, in dto.PaymentRequest) (*dto.AllocationPreviewResponse, error)
	ApplyPayment(ctx context.Context, in dto.PaymentRequest) (*dto.ReceiptResponse, error)
	ApplyCredit(ctx context.Context, in dto.ApplyCreditRequest) (*dto.ReceiptResponse, error)
	Reverse(ctx context.Context, receiptID string) (*dto.ReceiptResponse, error)
	Balance(ctx context.Context, customerID string) (*dto.BalanceResponse, error)
	Aging(ctx context.Context, customerID string, asOf time.Time) (*dto.AgingResponse, error)
	ReceiptTax(ctx context.Context, receiptID string) (*dto.TaxInformationResponse, error)
	ListReceipts(ctx context.Context, customerID string, page dto.PageRequest) (*dto.ReceiptListResponse, error)
}

// Backend abre el almacenamiento bajo demanda: `totals` no necesita base de datos.
type Backend interface {
	Ledger(ctx context.Context) (LedgerService, error)
	Migrate(ctx context.Context) (postgres.MigrationReport, error)
	Close()
}

// App dependencias de los comandos.
type App struct {
	Backend Backend
	Log     *logger.Logger
	Out     io.Writer
	Err     io.Writer
}

func (a *App) ledger(ctx context.Context) (LedgerService, error) {
	if a.Backend == nil {
		return nil, errors.New("sin almacenamiento configurado")
	}
	return a.Backend.Ledger(ctx)
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Fail imprime el error como JSON y lo registra.
func (a *App) Fail(err error) {
	kind := domain.KindOf(err)
	enc := json.NewEncoder(a.Err)
	enc.SetIndent("", "  ")
	_ = enc.Encode(dto.ErrorResponse{Code: string(kind), Message: err.Error()})
	if a.Log != nil {
		a.Log.Debug().Err(err).Str("kind", string(kind)).Msg("comando fallido")
	}
}

// ExitCode código de salida por categoría de error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return 2
	case domain.KindOverpayment:
		return 3
	case domain.KindInvalidState:
		return 4
	case domain.KindStaleState:
		return 5
	case domain.KindNotFound:
		return 6
	case domain.KindPersistence:
		return 7
	default:
		return 1
	}
}

func usageError(format string, args ...any) error {
	return domain.Invalidf(format, args...)
}
