// Package llm defines the generation client contract and the repair cascade
// applied to raw model output before it is trusted.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrTimeout means the model did not answer within the call budget.
	ErrTimeout = errors.New("llm request timed out")
	// ErrConnection means the backing service was unreachable.
	ErrConnection = errors.New("llm connection failed")
	// ErrResponse means the service answered with a malformed envelope.
	ErrResponse = errors.New("llm returned malformed response")
)

// Client produces raw text from a prompt. Temperature is a 0.0-1.0 control
// over output randomness, passed through unchanged.
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Retryable reports whether a generation failure is worth one retry with
// identical inputs. Malformed responses are not: the model answered, it just
// answered badly, and hammering it will not help.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}
