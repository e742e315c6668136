package alerts_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

func lowStock(itemID string) alerts.NewAlert {
	return alerts.NewAlert{
		Kind:     entity.AlertKindLowStock,
		ItemID:   itemID,
		Severity: entity.SeverityMedium,
		Title:    "Stock Mínimo - " + itemID,
	}
}

func TestLifecycle_AcknowledgeYResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, created, err := f.lifecycle.Create(ctx, lowStock("SKU-1"))
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, entity.AlertStateActive, a.State)

	a, err = f.lifecycle.Acknowledge(ctx, a.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.AlertStateAcknowledged, a.State)
	assert.Equal(t, "ana", a.AcknowledgedBy)
	require.NotNil(t, a.AcknowledgedAt)

	_, err = f.lifecycle.Acknowledge(ctx, a.ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	a, err = f.lifecycle.Resolve(ctx, a.ID, "luis")
	require.NoError(t, err)
	assert.Equal(t, entity.AlertStateResolved, a.State)
	assert.Equal(t, "luis", a.ResolvedBy)
	assert.Equal(t, t0, *a.ResolvedAt)
}

func TestLifecycle_ScenarioE_ResolverResuelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _, err := f.lifecycle.Create(ctx, lowStock("SKU-E"))
	require.NoError(t, err)
	_, err = f.lifecycle.Resolve(ctx, a.ID, "ana")
	require.NoError(t, err)

	_, err = f.lifecycle.Resolve(ctx, a.ID, "luis")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.lifecycle.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AlertStateResolved, stored.State)
	assert.Equal(t, "ana", stored.ResolvedBy)
}

func TestLifecycle_AlertaInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Acknowledge(context.Background(), "no-existe", "ana")
	assert.ErrorIs(t, err, domain.ErrAlertNotFound)
}

func TestLifecycle_CreateDeduplica(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.lifecycle.Create(ctx, lowStock("SKU-D"))
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := f.lifecycle.Create(ctx, lowStock("SKU-D"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.lifecycle.Acknowledge(ctx, first.ID, "ana")
	require.NoError(t, err)
	_, created, err = f.lifecycle.Create(ctx, lowStock("SKU-D"))
	require.NoError(t, err)
	assert.False(t, created, "una alerta vista sigue abierta")

	_, err = f.lifecycle.Resolve(ctx, first.ID, "ana")
	require.NoError(t, err)
	fresh, created, err := f.lifecycle.Create(ctx, lowStock("SKU-D"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fresh.ID)
}

func TestLifecycle_CreateConcurrenteUnaSolaAbierta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, ok, err := f.lifecycle.Create(ctx, lowStock("SKU-C"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[a.ID] = true
			if ok {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)

	open, err := f.lifecycle.List(ctx, repository.AlertFilter{
		ItemID: "SKU-C",
		States: []entity.AlertState{entity.AlertStateActive, entity.AlertStateAcknowledged},
	})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestLifecycle_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.lifecycle.Create(ctx, alerts.NewAlert{Kind: "otro", ItemID: "x", Severity: entity.SeverityLow})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = f.lifecycle.Create(ctx, alerts.NewAlert{Kind: entity.AlertKindStockOut, ItemID: "x", Severity: "urgente"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = f.lifecycle.Create(ctx, alerts.NewAlert{Kind: entity.AlertKindStockOut, Severity: entity.SeverityHigh})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.lifecycle.List(ctx, repository.AlertFilter{States: []entity.AlertState{"cerrada"}})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "state", ve.Field)
}
