package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func prices(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(ss))
	for _, s := range ss {
		out = append(out, d(s))
	}
	return out
}

// Historial con media 100.00 y desviación estándar poblacional 5.00.
var scenarioDPrior = prices("92.5", "107.5", "97.5", "102.5", "100")

func TestComputePriceStats(t *testing.T) {
	stats := inventory.ComputePriceStats(scenarioDPrior)
	assert.Equal(t, 5, stats.Count)
	assert.True(t, d("100").Equal(stats.Mean))
	assert.True(t, d("25").Equal(stats.Variance))
	assert.Equal(t, "5", stats.StdDev().String())
}

func TestAssessPrice_EscenarioD(t *testing.T) {
	res, sampled := inventory.AssessPrice(d("150.00"), scenarioDPrior, 3)
	require.True(t, sampled)
	assert.True(t, res.Anomalous, "150 > 100 + 2*5")
	assert.Equal(t, "50", res.VariationPct.String())
	assert.Equal(t, entity.SeverityHigh, res.Severity)
	assert.Equal(t, "110", res.UpperBound.String())
	assert.Equal(t, "90", res.LowerBound.String())
}

func TestAssessPrice_DentroDeBanda(t *testing.T) {
	res, sampled := inventory.AssessPrice(d("110"), scenarioDPrior, 3)
	require.True(t, sampled)
	assert.False(t, res.Anomalous, "exactamente media + 2σ no es atípico")

	res, _ = inventory.AssessPrice(d("89.99"), scenarioDPrior, 3)
	assert.True(t, res.Anomalous, "bajo media - 2σ es atípico")
	assert.Equal(t, entity.SeverityLow, res.Severity)
}

func TestAssessPrice_MuestraInsuficiente(t *testing.T) {
	_, sampled := inventory.AssessPrice(d("500"), prices("100", "100"), 3)
	assert.False(t, sampled)
}

func TestAssessPrice_SigmaCeroNuncaAtipico(t *testing.T) {
	res, sampled := inventory.AssessPrice(d("1000"), prices("100", "100", "100"), 3)
	require.True(t, sampled)
	assert.False(t, res.Anomalous)
}

func TestPriceSeverity(t *testing.T) {
	assert.Equal(t, entity.SeverityHigh, inventory.PriceSeverity(d("-60")))
	assert.Equal(t, entity.SeverityMedium, inventory.PriceSeverity(d("30")))
	assert.Equal(t, entity.SeverityMedium, inventory.PriceSeverity(d("25")))
	assert.Equal(t, entity.SeverityLow, inventory.PriceSeverity(d("10")))
}
