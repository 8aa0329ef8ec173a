package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
)

var ErrMalformedResponse = errors.New("model response is not an item list")

const extractionPrompt = `You read purchase orders extracted from PDF documents.
List every product the text asks to buy together with the requested quantity.
Answer with a JSON array only, no prose, in the form:
[{"name": "Matite", "quantity": 20}]
Use the product name as written in the text. Answer [] when no product is requested.`

type LLMOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
}

// LLMExtractor asks an OpenAI-compatible chat model to list the items in a
// document.
type LLMExtractor struct {
	client *openai.Client
	model  string
}

func NewLLMExtractor(opts LLMOptions) *LLMExtractor {
	reqOpts := []option.RequestOption{option.WithMaxRetries(opts.MaxRetries)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	model := opts.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &LLMExtractor{client: &client, model: model}
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]domain.ItemRequest, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractionPrompt),
			openai.UserMessage(text),
		},
		Model:       e.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned: %w", ErrMalformedResponse)
	}

	return parseItems(resp.Choices[0].Message.Content)
}

func parseItems(content string) ([]domain.ItemRequest, error) {
	content = stripCodeFence(content)

	var items []domain.ItemRequest
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	out := items[:0]
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
