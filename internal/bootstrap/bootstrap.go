// Package bootstrap arma el grafo de dependencias a partir de la configuración.
// Lo comparten el servidor HTTP (cmd/api) y la CLI de operación (cmd/ledgerctl).
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// Container casos de uso listos para usar.
type Container struct {
	RegisterMovement *inventory.RegisterMovementUseCase
	StockItems       *inventory.StockItemUseCase
	Valuation        *inventory.ValuationUseCase
	Alerts           *alerts.LifecycleUseCase
	Detector         *alerts.Detector
	Sweeper          *alerts.Sweeper

	close func()
}

// Close libera el pool de conexiones (no-op en memoria).
func (c *Container) Close() {
	if c.close != nil {
		c.close()
	}
}

type repos struct {
	txRunner inventory.TxRunner
	items    repository.StockItemRepository
	moves    repository.StockMovementRepository
	prices   repository.PriceObservationRepository
	alerts   repository.AlertRepository
}

// Build conecta el backend elegido por STORAGE_DRIVER y construye los casos de uso.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	var (
		r       repos
		closeFn func()
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		r = repos{
			txRunner: memory.NewTxRunner(store, cfg.Ledger.LockTimeout),
			items:    memory.NewStockItemRepository(store),
			moves:    memory.NewStockMovementRepository(store),
			prices:   memory.NewPriceObservationRepository(store),
			alerts:   memory.NewAlertRepository(store),
		}
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		r = pgRepos(pool, cfg)
		closeFn = pool.Close
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER desconocido: %s", cfg.Storage.Driver)
	}

	itemCache, err := cache.NewItemCache(cfg.Cache)
	if err != nil {
		if closeFn != nil {
			closeFn()
		}
		return nil, fmt.Errorf("caché Redis: %w", err)
	}

	c := wire(r, itemCache, cfg, log)
	c.close = closeFn
	return c, nil
}

func pgRepos(pool *pgxpool.Pool, cfg *config.Config) repos {
	return repos{
		txRunner: postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		items:    postgres.NewStockItemRepository(pool),
		moves:    postgres.NewStockMovementRepository(pool),
		prices:   postgres.NewPriceObservationRepository(pool),
		alerts:   postgres.NewAlertRepository(pool),
	}
}

func wire(r repos, itemCache inventory.ItemCache, cfg *config.Config, log *logger.Logger) *Container {
	policy := retry.Policy{MaxRetries: cfg.Ledger.MaxRetries, Backoff: cfg.Ledger.RetryBackoff}
	ledgerCfg := inventory.LedgerConfig{CostPlaces: cfg.Ledger.CostPlaces, Retry: policy}

	lifecycle := alerts.NewLifecycleUseCase(r.alerts, policy, log.Component("alerts"))
	detector := alerts.NewDetector(r.items, r.prices, lifecycle, alerts.DetectorConfig{
		Lookback:   cfg.Detector.PriceLookback,
		MinSamples: cfg.Detector.MinSamples,
		Cooldown:   cfg.Detector.Cooldown,
	}, log.Component("detector"))
	sweeper := alerts.NewSweeper(detector, r.items, r.prices, cfg.Sweep.Concurrency, log.Component("sweep"))

	prices := inventory.NewPriceTracker(r.prices)
	ledgerLog := log.Component("ledger")
	return &Container{
		RegisterMovement: inventory.NewRegisterMovementUseCase(r.txRunner, prices, detector, itemCache, ledgerCfg, ledgerLog),
		StockItems:       inventory.NewStockItemUseCase(r.items, r.moves, prices, detector, itemCache, ledgerLog),
		Valuation:        inventory.NewValuationUseCase(r.txRunner, r.items, itemCache, ledgerCfg, ledgerLog),
		Alerts:           lifecycle,
		Detector:         detector,
		Sweeper:          sweeper,
	}
}
