// Package llm talks to the language-model backend. The backend is a plain
// prompted text-completion service; nothing here knows about SQL or the
// market domain.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnreachable covers network failures, timeouts, and error statuses
	// from the model backend.
	ErrUnreachable = errors.New("model backend unreachable")
	// ErrMalformed means a response arrived but no known envelope shape
	// yielded generated text.
	ErrMalformed = errors.New("malformed model response")
)

type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
