// Package generator produces candidate formulations from prompts. The
// production backend is Gemini; tests substitute fakes through the
// Generator interface.
package generator

import (
	"context"
	"fmt"
)

// Turn is one completed prompt/response exchange. The controller passes
// prior turns back in so the model sees its own earlier attempts.
type Turn struct {
	Prompt   string
	Response string
}

// Generator produces raw model output for a prompt.
type Generator interface {
	// Generate sends the prompt, preceded by the conversation history, and
	// returns the raw response text.
	Generate(ctx context.Context, history []Turn, prompt string) (string, error)
}

// GenerationError reports a transport or backend failure. It means no
// response was obtained at all, as opposed to a response that fails
// verification.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
