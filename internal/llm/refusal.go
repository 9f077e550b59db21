package llm

import (
	"context"
	"fmt"
	"strings"
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// refusalWindow is how far into a reply a refusal phrase may start. Models
// decline in their opening sentence; phrases deeper in generated content are
// part of the content.
const refusalWindow = 80

// refusalGuard fails fast when the wrapped model declines to answer, so that a
// refusal never flows into the next stage as if it were content.
type refusalGuard struct {
	next Client
}

// WithRefusalCheck wraps c so that empty replies and replies opening with a
// known refusal phrase are returned as errors.
func WithRefusalCheck(c Client) Client {
	return &refusalGuard{next: c}
}

func (g *refusalGuard) Complete(ctx context.Context, req Request) (string, error) {
	out, err := g.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	lower := strings.ToLower(strings.TrimSpace(out))
	for _, phrase := range refusalPhrases {
		if i := strings.Index(lower, phrase); i >= 0 && i < refusalWindow {
			return "", fmt.Errorf("%w: response contains %q", ErrRefusal, phrase)
		}
	}
	return out, nil
}
