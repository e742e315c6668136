package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// NewAlert datos para crear una alerta.
type NewAlert struct {
	Kind           entity.AlertKind
	ItemID         string
	SupplierID     string
	Severity       entity.Severity
	Title          string
	Message        string
	ReferenceValue decimal.Decimal
}

// LifecycleUseCase ciclo de vida de alertas: creación deduplicada y transiciones
// active -> acknowledged -> resolved.
type LifecycleUseCase struct {
	repo  repository.AlertRepository
	retry retry.Policy
	log   zerolog.Logger
	now   func() time.Time
}

// NewLifecycleUseCase construye el caso de uso.
func NewLifecycleUseCase(repo repository.AlertRepository, policy retry.Policy, log zerolog.Logger) *LifecycleUseCase {
	return &LifecycleUseCase{repo: repo, retry: policy, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *LifecycleUseCase) WithClock(now func() time.Time) *LifecycleUseCase {
	uc.now = now
	return uc
}

// Create inserta la alerta salvo que ya exista una abierta del mismo (Kind, ItemID);
// en ese caso devuelve la existente con created=false.
func (uc *LifecycleUseCase) Create(ctx context.Context, in NewAlert) (*entity.Alert, bool, error) {
	if !in.Kind.Valid() {
		return nil, false, &domain.ValidationError{Field: "kind", Value: string(in.Kind), Err: domain.ErrInvalidInput}
	}
	if !in.Severity.Valid() {
		return nil, false, &domain.ValidationError{Field: "severity", Value: string(in.Severity), Err: domain.ErrInvalidInput}
	}
	if in.ItemID == "" {
		return nil, false, &domain.ValidationError{Field: "item_id", Err: domain.ErrInvalidInput}
	}
	alert := &entity.Alert{
		ID:             uuid.New().String(),
		Kind:           in.Kind,
		ItemID:         in.ItemID,
		SupplierID:     in.SupplierID,
		Severity:       in.Severity,
		State:          entity.AlertStateActive,
		Title:          in.Title,
		Message:        in.Message,
		ReferenceValue: in.ReferenceValue,
		CreatedAt:      uc.now(),
	}
	var (
		out     *entity.Alert
		created bool
	)
	err := retry.OnConflict(ctx, uc.retry, func() error {
		existing, ok, err := uc.repo.CreateIfAbsent(ctx, alert)
		if err != nil {
			return err
		}
		out, created = existing, ok
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		uc.log.Info().
			Str("alert_id", out.ID).
			Str("kind", string(out.Kind)).
			Str("item_id", out.ItemID).
			Str("severity", string(out.Severity)).
			Msg("alerta creada")
	}
	return out, created, nil
}

// Get alerta por ID.
func (uc *LifecycleUseCase) Get(ctx context.Context, id string) (*entity.Alert, error) {
	a, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrAlertNotFound
	}
	return a, nil
}

// List alertas filtradas. Sin estados en el filtro lista todas.
func (uc *LifecycleUseCase) List(ctx context.Context, filter repository.AlertFilter) ([]*entity.Alert, error) {
	for _, s := range filter.States {
		if !s.Valid() {
			return nil, &domain.ValidationError{Field: "state", Value: string(s), Err: domain.ErrInvalidInput}
		}
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, &domain.ValidationError{Field: "kind", Value: string(filter.Kind), Err: domain.ErrInvalidInput}
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		return nil, &domain.ValidationError{Field: "severity", Value: string(filter.Severity), Err: domain.ErrInvalidInput}
	}
	return uc.repo.List(ctx, filter)
}

// Acknowledge marca la alerta como vista. Requiere estado active.
func (uc *LifecycleUseCase) Acknowledge(ctx context.Context, id, actor string) (*entity.Alert, error) {
	return uc.transition(ctx, id, "acknowledge", func(a *entity.Alert, at time.Time) bool {
		return a.Acknowledge(actor, at)
	})
}

// Resolve cierra la alerta. Requiere estado active o acknowledged; resolved es terminal.
func (uc *LifecycleUseCase) Resolve(ctx context.Context, id, actor string) (*entity.Alert, error) {
	return uc.transition(ctx, id, "resolve", func(a *entity.Alert, at time.Time) bool {
		return a.Resolve(actor, at)
	})
}

// transition lee, aplica la transición y la persiste con CAS sobre el estado leído.
// Si otro proceso cambió el estado entre medio, se relee y se vuelve a evaluar.
func (uc *LifecycleUseCase) transition(ctx context.Context, id, op string, apply func(*entity.Alert, time.Time) bool) (*entity.Alert, error) {
	var out *entity.Alert
	err := retry.OnConflict(ctx, uc.retry, func() error {
		a, err := uc.Get(ctx, id)
		if err != nil {
			return err
		}
		from := a.State
		if !apply(a, uc.now()) {
			return &domain.ValidationError{Field: "state", Value: string(from), Err: domain.ErrInvalidTransition}
		}
		ok, err := uc.repo.UpdateState(ctx, a, from)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConcurrencyConflict
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("alert_id", id).Str("op", op).Str("state", string(out.State)).Msg("transición de alerta")
	return out, nil
}
