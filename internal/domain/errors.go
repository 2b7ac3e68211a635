package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada error devuelto por la cartera envuelve exactamente uno de estos con %w.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrOverpayment  = errors.New("el pago excede el saldo pendiente de la factura")
	ErrInvalidState = errors.New("estado inválido para la operación")
	ErrStaleState   = errors.New("el estado cambió desde la última lectura")
	ErrPersistence  = errors.New("error de persistencia")
)

// ErrorKind clasifica un error para el llamador.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindOverpayment  ErrorKind = "OVERPAYMENT"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindStaleState   ErrorKind = "STALE_STATE"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindPersistence  ErrorKind = "PERSISTENCE"
	KindUnknown      ErrorKind = "UNKNOWN"
)

// KindOf devuelve la categoría de err. Solo KindStaleState es reintentable (con estado fresco).
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrOverpayment):
		return KindOverpayment
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrStaleState):
		return KindStaleState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// Invalidf envuelve ErrInvalidInput con detalle.
func Invalidf(format string, args ...any) error {
	return wrap(ErrInvalidInput, format, args...)
}

// Overpaymentf envuelve ErrOverpayment con detalle.
func Overpaymentf(format string, args ...any) error {
	return wrap(ErrOverpayment, format, args...)
}

// InvalidStatef envuelve ErrInvalidState con detalle.
func InvalidStatef(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

// Stalef envuelve ErrStaleState con detalle.
func Stalef(format string, args ...any) error {
	return wrap(ErrStaleState, format, args...)
}

// Persistence envuelve un fallo del almacenamiento como ErrPersistence conservando la causa.
// Los errores que ya son de dominio se devuelven intactos.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func wrap(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}
