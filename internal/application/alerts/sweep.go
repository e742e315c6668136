package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const sweepPageSize = 200

// SweepOptions qué reglas correr. DryRun solo reporta: no crea alertas ni marca precios.
type SweepOptions struct {
	Stock  bool
	Prices bool
	DryRun bool
}

// SweepReport resumen de una pasada.
type SweepReport struct {
	ItemsScanned  int
	PricesScanned int
	Created       int
	Findings      []NewAlert // con DryRun: alertas que se habrían creado (antes de deduplicar)
	Failed        int
	StartedAt     time.Time
	Duration      time.Duration
}

// Sweeper vuelve a correr el detector sobre todos los ítems, con concurrencia acotada.
type Sweeper struct {
	detector    *Detector
	items       repository.StockItemRepository
	prices      repository.PriceObservationRepository
	concurrency int
	log         zerolog.Logger
}

// NewSweeper construye el barrido.
func NewSweeper(detector *Detector, items repository.StockItemRepository, prices repository.PriceObservationRepository, concurrency int, log zerolog.Logger) *Sweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Sweeper{detector: detector, items: items, prices: prices, concurrency: concurrency, log: log}
}

// Sweep ejecuta una pasada. Las fallas por ítem se cuentan y registran, no abortan la pasada;
// solo una falla al listar la detiene.
func (s *Sweeper) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	rep := &SweepReport{StartedAt: time.Now()}
	var mu sync.Mutex

	record := func(na *NewAlert, created bool, err error, itemID string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			rep.Failed++
			s.log.Error().Err(err).Str("item_id", itemID).Msg("barrido: evaluar ítem")
			return
		}
		if created {
			rep.Created++
		}
		if na != nil && opts.DryRun {
			rep.Findings = append(rep.Findings, *na)
		}
	}

	if opts.Stock {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for offset := 0; ; offset += sweepPageSize {
			page, err := s.items.List(gctx, sweepPageSize, offset)
			if err != nil {
				_ = g.Wait()
				return nil, err
			}
			for _, item := range page {
				itemID := item.ID
				mu.Lock()
				rep.ItemsScanned++
				mu.Unlock()
				g.Go(func() error {
					if opts.DryRun {
						na, err := s.detector.DetectItem(gctx, itemID)
						record(na, false, err, itemID)
						return nil
					}
					a, err := s.detector.EvaluateItem(gctx, itemID)
					record(nil, a != nil, err, itemID)
					return nil
				})
			}
			if len(page) < sweepPageSize {
				break
			}
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if opts.Prices {
		since := s.detector.now().Add(-s.detector.cfg.Lookback)
		itemIDs, err := s.prices.ItemsObservedSince(ctx, since)
		if err != nil {
			return nil, err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, id := range itemIDs {
			itemID := id
			rep.PricesScanned++
			g.Go(func() error {
				obs, err := s.prices.LatestByItem(gctx, itemID)
				if err != nil || obs == nil {
					record(nil, false, err, itemID)
					return nil
				}
				// Ya evaluada y marcada: repetirla recrearía alertas resueltas por la misma compra.
				if obs.FlaggedAnomalous {
					record(nil, false, nil, itemID)
					return nil
				}
				if opts.DryRun {
					f, err := s.detector.DetectPrice(gctx, obs)
					var na *NewAlert
					if f != nil {
						na = f.Alert
					}
					record(na, false, err, itemID)
					return nil
				}
				a, err := s.detector.EvaluatePrice(gctx, obs)
				record(nil, a != nil, err, itemID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	rep.Duration = time.Since(rep.StartedAt)
	s.log.Info().
		Int("items", rep.ItemsScanned).
		Int("prices", rep.PricesScanned).
		Int("created", rep.Created).
		Int("failed", rep.Failed).
		Bool("dry_run", opts.DryRun).
		Dur("duration", rep.Duration).
		Msg("barrido de alertas")
	return rep, nil
}

// Run ejecuta Sweep cada interval hasta que ctx se cancele.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, SweepOptions{Stock: true, Prices: true}); err != nil {
				s.log.Error().Err(err).Msg("barrido de alertas")
			}
		}
	}
}

// ParseSweepKind traduce el tipo de barrido: "stock", "precios" o "all" (vacío = all).
func ParseSweepKind(tipo string, dryRun bool) (SweepOptions, error) {
	switch tipo {
	case "", "all":
		return SweepOptions{Stock: true, Prices: true, DryRun: dryRun}, nil
	case "stock":
		return SweepOptions{Stock: true, DryRun: dryRun}, nil
	case "precios":
		return SweepOptions{Prices: true, DryRun: dryRun}, nil
	}
	return SweepOptions{}, &domain.ValidationError{Field: "tipo", Value: tipo, Err: domain.ErrInvalidInput}
}
