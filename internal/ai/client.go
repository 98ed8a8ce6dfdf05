// Package ai – text-generation backend.
//
// TextGenerator abstracts the LLM vendor behind two calls: a buffered
// generation used by the structured/JSON features, and an incremental stream
// used by free-text summarization. The production implementation speaks the
// OpenAI chat-completion API; tests plug in fakes.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GenOptions constrain a single generation call. Zero values mean vendor
// defaults.
type GenOptions struct {
	MaxTokens   int
	Temperature float32
}

// TextGenerator produces text from a system instruction and a user
// instruction. Stream delivers the response as successive fragments via fn;
// returning an error from fn aborts the stream.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string, opts GenOptions) (text string, tokens int, err error)
	Stream(ctx context.Context, system, user string, opts GenOptions, fn func(chunk string) error) error
}

// OpenAIGenerator is the production TextGenerator backed by the OpenAI
// chat-completion API (or any compatible endpoint via base URL override).
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds the vendor client. A missing API key is a
// configuration error; callers are expected to fail fast at startup.
func NewOpenAIGenerator(apiKey, model, baseURL string) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: missing API key")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (g *OpenAIGenerator) request(system, user string, opts GenOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	return req
}

// Generate performs one buffered completion and reports total token usage.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string, opts GenOptions) (string, int, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.request(system, user, opts))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

// Stream performs one streamed completion, forwarding each content delta to
// fn as it arrives. Cancellation happens through ctx; there is no buffering
// beyond the current fragment.
func (g *OpenAIGenerator) Stream(ctx context.Context, system, user string, opts GenOptions, fn func(chunk string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(system, user, opts))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := fn(delta); err != nil {
				return err
			}
		}
	}
}
