package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de inventario: movimiento, ítem y precio se confirman juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.StockItemRepository,
		movRepo repository.StockMovementRepository,
		priceRepo repository.PriceObservationRepository,
	) error) error
}

// Evaluator reglas de alerta que se invocan después de confirmar un movimiento.
// Lo implementa *alerts.Detector. Devuelve la alerta solo si se creó una nueva.
type Evaluator interface {
	EvaluateItem(ctx context.Context, itemID string) (*entity.Alert, error)
	EvaluatePrice(ctx context.Context, obs *entity.PriceObservation) (*entity.Alert, error)
}

// ItemCache caché de lectura de la proyección del ítem. Set no reemplaza una entrada con
// Version mayor que la del ítem recibido.
type ItemCache interface {
	Get(ctx context.Context, itemID string) (*entity.StockItem, bool, error)
	Set(ctx context.Context, item *entity.StockItem) error
	Invalidate(ctx context.Context, itemID string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*entity.StockItem, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, *entity.StockItem) error                 { return nil }
func (noopCache) Invalidate(context.Context, string) error                     { return nil }

type noopEvaluator struct{}

func (noopEvaluator) EvaluateItem(context.Context, string) (*entity.Alert, error) { return nil, nil }
func (noopEvaluator) EvaluatePrice(context.Context, *entity.PriceObservation) (*entity.Alert, error) {
	return nil, nil
}
