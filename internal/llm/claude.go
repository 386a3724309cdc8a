package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"blink/internal/domain"
)

const defaultClaudeMaxTokens = 512

// MessagesClient is the part of the Anthropic SDK used here. *sdk.MessageService
// satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

type ClaudeProvider struct {
	msg MessagesClient
}

func NewClaudeProvider(client *http.Client, baseURL, apiKey string) *ClaudeProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(client)}
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	ac := sdk.NewClient(opts...)
	return &ClaudeProvider{msg: &ac.Messages}
}

// NewClaudeProviderWithClient wraps an existing messages client.
func NewClaudeProviderWithClient(msg MessagesClient) *ClaudeProvider {
	return &ClaudeProvider{msg: msg}
}

func (p *ClaudeProvider) Complete(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	if len(req.Messages) == 0 {
		return domain.LLMResponse{}, errors.New("claude: messages are required")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(req.Model),
		Messages:  make([]sdk.MessageParam, 0, len(req.Messages)),
	}
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\nRespond with a single JSON object and nothing else.")
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "assistant":
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	msg, err := p.msg.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
			return domain.LLMResponse{}, &domain.RejectedError{Provider: "claude", Reason: err.Error()}
		}
		return domain.LLMResponse{}, fmt.Errorf("claude messages.new: %w", err)
	}
	if msg == nil {
		return domain.LLMResponse{}, errors.New("claude: response message is nil")
	}

	out := domain.LLMResponse{}
	for _, block := range msg.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if out.Content == "" {
			out.Content = block.Text
		} else {
			out.Content += "\n" + block.Text
		}
	}
	return out, nil
}
