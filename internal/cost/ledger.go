package cost

import (
	"math"
	"sort"
)

// Totals is a cumulative token and spend count for one (provider, model).
type Totals struct {
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	TotalUSD  float64 `json:"total_usd"`
}

// Snapshot is an immutable copy of ledger state.
type Snapshot struct {
	PerModel  map[string]Totals `json:"per_model"`
	TokensIn  int               `json:"tokens_in"`
	TokensOut int               `json:"tokens_out"`
	TotalUSD  float64           `json:"total_usd"`
}

// Ledger accumulates token usage and spend over the lifetime of a run.
// Totals are monotonically non-decreasing. The ledger is owned by the
// run's worker goroutine and is not safe for concurrent use; external
// readers consume snapshots published by the worker.
type Ledger struct {
	table    Table
	perModel map[string]Totals
	grand    Totals
}

func NewLedger(table Table) *Ledger {
	return &Ledger{
		table:    table,
		perModel: make(map[string]Totals),
	}
}

// Record accumulates the token usage of one teacher response. The cost
// is derived from the pricing table; a missing entry is an error rather
// than a silent zero.
func (l *Ledger) Record(providerID, modelID string, tokensIn, tokensOut int) error {
	entry, err := l.table.Lookup(providerID, modelID)
	if err != nil {
		return err
	}

	usd := entry.USD(tokensIn, tokensOut)

	key := Key(providerID, modelID)
	t := l.perModel[key]
	t.TokensIn += tokensIn
	t.TokensOut += tokensOut
	t.TotalUSD += usd
	l.perModel[key] = t

	l.grand.TokensIn += tokensIn
	l.grand.TokensOut += tokensOut
	l.grand.TotalUSD += usd
	return nil
}

// Snapshot returns an immutable copy of the current totals.
func (l *Ledger) Snapshot() Snapshot {
	per := make(map[string]Totals, len(l.perModel))
	for k, v := range l.perModel {
		per[k] = v
	}
	return Snapshot{
		PerModel:  per,
		TokensIn:  l.grand.TokensIn,
		TokensOut: l.grand.TokensOut,
		TotalUSD:  l.grand.TotalUSD,
	}
}

// Keys returns the recorded (provider, model) keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.PerModel))
	for k := range s.PerModel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RoundUSD rounds (never truncates) a dollar amount to nanodollar
// precision for reporting.
func RoundUSD(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
