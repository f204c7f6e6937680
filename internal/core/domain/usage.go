package domain

// TokenCount tracks prompt and completion tokens for one model.
type TokenCount struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Usage accumulates token counts per model and the estimated cost in USD.
type Usage struct {
	Tokens map[string]TokenCount `json:"tokens"`
	Cost   float64               `json:"cost"`
}

// Add records one model call.
func (u *Usage) Add(model string, prompt, completion int) {
	if u.Tokens == nil {
		u.Tokens = make(map[string]TokenCount)
	}
	tc := u.Tokens[model]
	tc.Prompt += prompt
	tc.Completion += completion
	u.Tokens[model] = tc
	u.Cost += EstimateCost(model, prompt, completion)
}

// Merge folds another usage record into this one.
func (u *Usage) Merge(other Usage) {
	if len(other.Tokens) == 0 {
		u.Cost += other.Cost
		return
	}
	if u.Tokens == nil {
		u.Tokens = make(map[string]TokenCount)
	}
	for model, tc := range other.Tokens {
		cur := u.Tokens[model]
		cur.Prompt += tc.Prompt
		cur.Completion += tc.Completion
		u.Tokens[model] = cur
	}
	u.Cost += other.Cost
}

// Total returns the sum of all prompt and completion tokens.
func (u Usage) Total() int {
	total := 0
	for _, tc := range u.Tokens {
		total += tc.Prompt + tc.Completion
	}
	return total
}
