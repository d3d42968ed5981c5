package completion

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"loom-backend/application/ports"
)

// OpenAIProvider streams chat completions from the OpenAI API (or any
// compatible endpoint via base URL override).
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider for the given credentials
func NewOpenAIProvider(apiKey, model, baseURL string, logger *zap.Logger) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Stream implements ports.CompletionProvider
func (p *OpenAIProvider) Stream(ctx context.Context, messages []ports.CompletionMessage) (<-chan ports.CompletionChunk, <-chan error) {
	chunks := make(chan ports.CompletionChunk)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		request := openai.ChatCompletionRequest{
			Model:    p.model,
			Messages: toOpenAIMessages(messages),
			Stream:   true,
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, request)
		if err != nil {
			errs <- err
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- ports.CompletionChunk{Done: true}
				return
			}
			if err != nil {
				p.logger.Warn("completion stream aborted", zap.Error(err))
				errs <- err
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			content := response.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			select {
			case chunks <- ports.CompletionChunk{Content: content}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

func toOpenAIMessages(messages []ports.CompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}
