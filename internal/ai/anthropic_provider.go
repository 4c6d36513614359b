package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fdg312/dining-planner/internal/config"
)

type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

func NewAnthropicProvider(cfg *config.Config, opts ...option.RequestOption) *AnthropicProvider {
	timeoutSeconds := cfg.AI.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}

	base := []option.RequestOption{
		option.WithAPIKey(cfg.AI.AnthropicAPIKey),
		option.WithHTTPClient(&http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}),
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(append(base, opts...)...),
		model:       cfg.AI.AnthropicModel,
		maxTokens:   cfg.AI.MaxOutputTokens,
		temperature: cfg.AI.Temperature,
	}
}

func (p *AnthropicProvider) Name() string { return config.AIModeAnthropic }

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(p.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Tool != nil {
		params.Tools = []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        req.Tool.Name,
				Description: anthropic.String(req.Tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: req.Tool.Properties,
					Required:   req.Tool.Required,
				},
			},
		}}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tool.Name},
		}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	out := CompletionResponse{
		Usage: Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if req.Tool != nil && block.Name == req.Tool.Name && out.ToolInput == nil {
				out.ToolInput = append([]byte(nil), block.Input...)
			}
		}
	}
	out.Text = strings.TrimSpace(text.String())

	if out.Text == "" && out.ToolInput == nil {
		return out, ErrNoContent
	}
	return out, nil
}
