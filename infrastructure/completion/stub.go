package completion

import (
	"context"
	"strings"

	"loom-backend/application/ports"
)

// StubProvider echoes the final prompt back word by word. It keeps
// development and tests independent of any external model API.
type StubProvider struct{}

// NewStubProvider creates a stub provider
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// Stream implements ports.CompletionProvider
func (p *StubProvider) Stream(ctx context.Context, messages []ports.CompletionMessage) (<-chan ports.CompletionChunk, <-chan error) {
	chunks := make(chan ports.CompletionChunk)
	errs := make(chan error, 1)

	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}

	go func() {
		defer close(chunks)
		defer close(errs)

		words := strings.Fields("echo: " + prompt)
		for i, word := range words {
			if i > 0 {
				word = " " + word
			}
			select {
			case chunks <- ports.CompletionChunk{Content: word}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		chunks <- ports.CompletionChunk{Done: true}
	}()

	return chunks, errs
}
