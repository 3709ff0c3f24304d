package cost

import "sort"

// Scenario describes a hypothetical training run for cost projection.
type Scenario struct {
	Name             string `json:"name,omitempty"`
	Prompts          int    `json:"prompts"`
	Steps            int    `json:"steps"`
	AvgTokensPerStep int    `json:"avg_tokens_per_step"`
	// InputFraction is the share of tokens counted as input; the
	// remainder is output. Zero means the 0.5 default.
	InputFraction float64 `json:"input_fraction,omitempty"`
}

// ModelCost is the projected spend for one (provider, model).
type ModelCost struct {
	ProviderID string  `json:"provider_id"`
	ModelID    string  `json:"model_id"`
	USD        float64 `json:"usd"`
}

// Breakdown is the result of a cost projection.
type Breakdown struct {
	Scenario    Scenario    `json:"scenario"`
	TotalTokens int         `json:"total_tokens"`
	TokensIn    int         `json:"tokens_in"`
	TokensOut   int         `json:"tokens_out"`
	PerModel    []ModelCost `json:"per_model"`
}

// Estimate projects the cost of a scenario against every entry in the
// pricing table. It is a pure function, linear in token and step count,
// and uses the exact arithmetic the ledger uses, so a pre-run estimate
// and a completed run's actual spend are directly comparable.
func Estimate(s Scenario, table Table) Breakdown {
	frac := s.InputFraction
	if frac == 0 {
		frac = 0.5
	}

	total := s.Prompts * s.Steps * s.AvgTokensPerStep
	tokensIn := int(float64(total) * frac)
	tokensOut := total - tokensIn

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	perModel := make([]ModelCost, 0, len(keys))
	for _, k := range keys {
		e := table[k]
		perModel = append(perModel, ModelCost{
			ProviderID: e.ProviderID,
			ModelID:    e.ModelID,
			USD:        RoundUSD(e.USD(tokensIn, tokensOut)),
		})
	}

	return Breakdown{
		Scenario:    s,
		TotalTokens: total,
		TokensIn:    tokensIn,
		TokensOut:   tokensOut,
		PerModel:    perModel,
	}
}

// EstimateModel projects a scenario against a single pricing entry.
func EstimateModel(s Scenario, e Entry) ModelCost {
	frac := s.InputFraction
	if frac == 0 {
		frac = 0.5
	}
	total := s.Prompts * s.Steps * s.AvgTokensPerStep
	tokensIn := int(float64(total) * frac)
	return ModelCost{
		ProviderID: e.ProviderID,
		ModelID:    e.ModelID,
		USD:        RoundUSD(e.USD(tokensIn, total-tokensIn)),
	}
}
