package domain

// ModelPrice is the USD price per million tokens.
type ModelPrice struct {
	Input  float64
	Output float64
}

// ModelPrices returns list prices for known hosted models.
// Local models are absent and cost nothing.
func ModelPrices() map[string]ModelPrice {
	return map[string]ModelPrice{
		"gpt-4o-mini":              {Input: 0.15, Output: 0.60},
		"gpt-4o":                   {Input: 2.50, Output: 10.00},
		"gpt-4.1-mini":             {Input: 0.40, Output: 1.60},
		"claude-3-5-sonnet-latest": {Input: 3.00, Output: 15.00},
		"claude-3-5-haiku-latest":  {Input: 0.80, Output: 4.00},
	}
}

// EstimateCost returns the cost of one call, or zero for unknown models.
func EstimateCost(model string, prompt, completion int) float64 {
	price, ok := ModelPrices()[model]
	if !ok {
		return 0
	}
	return (float64(prompt)*price.Input + float64(completion)*price.Output) / 1_000_000
}
