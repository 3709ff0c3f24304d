package cost_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func miniTable() cost.Table {
	return cost.Table{
		cost.Key("openai", "gpt-4o-mini"): {
			ProviderID:   "openai",
			ModelID:      "gpt-4o-mini",
			InputPerTok:  0.00015 / 1000,
			OutputPerTok: 0.0006 / 1000,
		},
	}
}

func TestLedgerLinearFormula(t *testing.T) {
	ledger := cost.NewLedger(miniTable())

	// 3 queries totaling 120 tokens, split evenly in/out.
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Record("openai", "gpt-4o-mini", 20, 20))
	}

	snap := ledger.Snapshot()
	assert.Equal(t, 60, snap.TokensIn)
	assert.Equal(t, 60, snap.TokensOut)

	want := 60*0.00015/1000 + 60*0.0006/1000
	assert.InDelta(t, want, snap.TotalUSD, 1e-12)

	per := snap.PerModel[cost.Key("openai", "gpt-4o-mini")]
	assert.InDelta(t, want, per.TotalUSD, 1e-12)
}

func TestLedgerMonotonic(t *testing.T) {
	ledger := cost.NewLedger(miniTable())

	prev := ledger.Snapshot()
	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Record("openai", "gpt-4o-mini", 10, 5))
		snap := ledger.Snapshot()
		assert.GreaterOrEqual(t, snap.TokensIn, prev.TokensIn)
		assert.GreaterOrEqual(t, snap.TokensOut, prev.TokensOut)
		assert.GreaterOrEqual(t, snap.TotalUSD, prev.TotalUSD)
		prev = snap
	}
}

func TestLedgerMissingEntry(t *testing.T) {
	ledger := cost.NewLedger(miniTable())
	err := ledger.Record("openai", "gpt-5", 10, 10)
	require.ErrorIs(t, err, cost.ErrNoPricing)
}

func TestLedgerSnapshotIsolated(t *testing.T) {
	ledger := cost.NewLedger(miniTable())
	require.NoError(t, ledger.Record("openai", "gpt-4o-mini", 10, 10))

	snap := ledger.Snapshot()
	snap.PerModel["tampered"] = cost.Totals{TokensIn: 999}

	assert.NotContains(t, ledger.Snapshot().PerModel, "tampered")
}

func TestEstimateLinear(t *testing.T) {
	table := miniTable()

	base := cost.Estimate(cost.Scenario{Prompts: 10, Steps: 20, AvgTokensPerStep: 100}, table)
	doubleSteps := cost.Estimate(cost.Scenario{Prompts: 10, Steps: 40, AvgTokensPerStep: 100}, table)
	doubleTokens := cost.Estimate(cost.Scenario{Prompts: 10, Steps: 20, AvgTokensPerStep: 200}, table)

	require.Len(t, base.PerModel, 1)
	assert.InDelta(t, 2*base.PerModel[0].USD, doubleSteps.PerModel[0].USD, 1e-12)
	assert.InDelta(t, 2*base.PerModel[0].USD, doubleTokens.PerModel[0].USD, 1e-12)
}

func TestEstimateMatchesLedger(t *testing.T) {
	table := miniTable()

	// Project a run, then replay the identical token volume through the
	// ledger; the two must agree.
	s := cost.Scenario{Prompts: 5, Steps: 8, AvgTokensPerStep: 50}
	est := cost.Estimate(s, table)

	ledger := cost.NewLedger(table)
	require.NoError(t, ledger.Record("openai", "gpt-4o-mini", est.TokensIn, est.TokensOut))

	assert.InDelta(t, est.PerModel[0].USD, cost.RoundUSD(ledger.Snapshot().TotalUSD), 1e-12)
}

func TestRoundUSDRoundsNotTruncates(t *testing.T) {
	assert.InDelta(t, 0.000000002, cost.RoundUSD(0.0000000019), 1e-15)
	assert.InDelta(t, 0.000000001, cost.RoundUSD(0.0000000014), 1e-15)
}

func TestDefaultTableLookup(t *testing.T) {
	table := cost.DefaultTable()

	e, err := table.Lookup("openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.InDelta(t, 0.00015/1000, e.InputPerTok, 1e-15)
	assert.InDelta(t, 0.0006/1000, e.OutputPerTok, 1e-15)

	free, err := table.Lookup("ollama", "llama3")
	require.NoError(t, err)
	assert.Zero(t, free.USD(1000, 1000))
}

func TestWithFreeEntry(t *testing.T) {
	table := miniTable()
	augmented := table.WithFreeEntry("ollama", "qwen3")

	_, err := table.Lookup("ollama", "qwen3")
	require.ErrorIs(t, err, cost.ErrNoPricing)

	e, err := augmented.Lookup("ollama", "qwen3")
	require.NoError(t, err)
	assert.Zero(t, e.USD(500, 500))

	// Existing entries are never overwritten.
	paid := augmented.WithFreeEntry("openai", "gpt-4o-mini")
	e, err = paid.Lookup("openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Positive(t, e.USD(1000, 1000))
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	content := `{
		"openai/gpt-4o-mini": {"price_per_input_token": 1.5e-07, "price_per_output_token": 6e-07},
		"ollama/llama3": {"price_per_input_token": 0, "price_per_output_token": 0}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := cost.LoadTable(path)
	require.NoError(t, err)

	e, err := table.Lookup("openai", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", e.ProviderID)
	assert.Equal(t, "gpt-4o-mini", e.ModelID)
	assert.InDelta(t, 1.5e-07, e.InputPerTok, 1e-15)
}
