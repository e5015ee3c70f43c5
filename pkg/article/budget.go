package article

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Budget caps article content to a number of model tokens.
type Budget struct {
	enc *tiktoken.Tiktoken
	max int
}

// NewBudget returns a Budget backed by tiktoken-go for the given model.
// If the model is unknown, EncodingForModel returns an error.
func NewBudget(model string, max int) (*Budget, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &Budget{enc: enc, max: max}, nil
}

// Apply counts the tokens of text and truncates it to the budget. The
// returned count is that of the returned text.
func (b *Budget) Apply(text string) (string, int, bool) {
	tokens := b.enc.Encode(text, nil, nil)
	if b.max <= 0 || len(tokens) <= b.max {
		return text, len(tokens), false
	}
	return b.enc.Decode(tokens[:b.max]), b.max, true
}
