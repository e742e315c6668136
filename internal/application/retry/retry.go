package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// Policy reintentos ante domain.ErrConcurrencyConflict. Backoff crece linealmente por intento.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
}

// OnConflict ejecuta fn y la repite mientras falle por conflicto de concurrencia.
// Cualquier otro error (validación, almacenamiento) se devuelve sin reintentar.
func OnConflict(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("%d intentos agotados: %w", attempts, err)
}
