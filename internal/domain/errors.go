package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrItemNotFound  = errors.New("ítem de inventario no encontrado")
	ErrAlertNotFound = errors.New("alerta no encontrada")

	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInvalidPrice      = errors.New("precio inválido")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrNegativeStock     = errors.New("el stock resultante no puede ser negativo")
	ErrInvalidTransition = errors.New("transición de estado no permitida")

	// ErrConcurrencyConflict es transitorio: los casos de uso lo reintentan antes de devolverlo.
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	// ErrStorageFailure nunca se reintenta; el llamador decide.
	ErrStorageFailure = errors.New("falla de almacenamiento")
)

// ValidationError agrega campo y valor ofensivo a un error de validación.
// errors.Is(err, ErrInvalidQuantity) sigue funcionando a través de Unwrap.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%s", e.Err.Error(), e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid construye un ValidationError.
func Invalid(err error, field string, value fmt.Stringer) *ValidationError {
	v := ""
	if value != nil {
		v = value.String()
	}
	return &ValidationError{Field: field, Value: v, Err: err}
}

// StorageError envuelve una falla de persistencia. Es ErrStorageFailure para errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }
