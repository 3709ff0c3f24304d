package cost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoPricing is returned when a (provider, model) pair has no entry in
// the pricing table.
var ErrNoPricing = errors.New("no pricing entry")

// Entry holds per-token pricing for one model of one provider.
type Entry struct {
	ProviderID   string  `json:"provider_id"`
	ModelID      string  `json:"model_id"`
	InputPerTok  float64 `json:"price_per_input_token"`
	OutputPerTok float64 `json:"price_per_output_token"`
}

// USD is the single pricing formula shared by the ledger and the
// estimator, so pre-run projections and post-run actuals are comparable.
func (e Entry) USD(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)*e.InputPerTok + float64(tokensOut)*e.OutputPerTok
}

// Table maps "provider/model" keys to pricing entries. Keys are unique.
type Table map[string]Entry

func Key(providerID, modelID string) string {
	return providerID + "/" + modelID
}

func (t Table) Lookup(providerID, modelID string) (Entry, error) {
	e, ok := t[Key(providerID, modelID)]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", Key(providerID, modelID), ErrNoPricing)
	}
	return e, nil
}

// WithFreeEntry returns a copy of the table that is guaranteed to carry a
// zero-cost entry for the given model. Local teachers accrue token counts
// in the ledger but no spend.
func (t Table) WithFreeEntry(providerID, modelID string) Table {
	out := make(Table, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	key := Key(providerID, modelID)
	if _, ok := out[key]; !ok {
		out[key] = Entry{ProviderID: providerID, ModelID: modelID}
	}
	return out
}

// per-1K-token prices in USD: [input, output].
var defaultPer1K = map[string][2]float64{
	// OpenAI
	"openai/gpt-4":         {0.03, 0.06},
	"openai/gpt-4-turbo":   {0.01, 0.03},
	"openai/gpt-4o":        {0.005, 0.015},
	"openai/gpt-4o-mini":   {0.00015, 0.0006},
	"openai/gpt-3.5-turbo": {0.0005, 0.0015},

	// Anthropic
	"anthropic/claude-3-opus-20240229":   {0.015, 0.075},
	"anthropic/claude-3-sonnet-20240229": {0.003, 0.015},
	"anthropic/claude-3-haiku-20240307":  {0.00025, 0.00125},
	"anthropic/claude-sonnet-4-20250514": {0.003, 0.015},
	"anthropic/claude-opus-4-20250514":   {0.015, 0.075},

	// Local models are free
	"ollama/llama3":  {0, 0},
	"ollama/mistral": {0, 0},
}

// DefaultTable returns the built-in pricing table.
func DefaultTable() Table {
	t := make(Table, len(defaultPer1K))
	for key, prices := range defaultPer1K {
		var provider, model string
		for i := 0; i < len(key); i++ {
			if key[i] == '/' {
				provider, model = key[:i], key[i+1:]
				break
			}
		}
		t[key] = Entry{
			ProviderID:   provider,
			ModelID:      model,
			InputPerTok:  prices[0] / 1000.0,
			OutputPerTok: prices[1] / 1000.0,
		}
	}
	return t
}

type tableFileEntry struct {
	PricePerInputToken  float64 `json:"price_per_input_token"`
	PricePerOutputToken float64 `json:"price_per_output_token"`
}

// LoadTable reads an external pricing file: a JSON object mapping
// "provider/model" keys to per-token prices.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}

	var raw map[string]tableFileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}

	t := make(Table, len(raw))
	for key, fe := range raw {
		var provider, model string
		for i := 0; i < len(key); i++ {
			if key[i] == '/' {
				provider, model = key[:i], key[i+1:]
				break
			}
		}
		if provider == "" || model == "" {
			return nil, fmt.Errorf("pricing key %q: want provider/model", key)
		}
		t[key] = Entry{
			ProviderID:   provider,
			ModelID:      model,
			InputPerTok:  fe.PricePerInputToken,
			OutputPerTok: fe.PricePerOutputToken,
		}
	}
	return t, nil
}
