package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fdg312/dining-planner/internal/config"
)

const maxOpenAIResponseBytes = 4 << 20

type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	timeoutSeconds := cfg.AI.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	baseURL := strings.TrimRight(cfg.AI.OpenAIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		apiKey:      cfg.AI.OpenAIAPIKey,
		model:       cfg.AI.OpenAIModel,
		baseURL:     baseURL,
		maxTokens:   cfg.AI.MaxOutputTokens,
		temperature: cfg.AI.Temperature,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (p *OpenAIProvider) Name() string { return config.AIModeOpenAI }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	messages := make([]chatMessageRequest, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessageRequest{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessageRequest{Role: "user", Content: req.Prompt})

	requestPayload := chatCompletionsRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   maxTokens,
		Messages:    messages,
	}
	if req.Tool != nil {
		requestPayload.Tools = []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": req.Tool.Properties,
					"required":   req.Tool.Required,
				},
			},
		}}
		requestPayload.ToolChoice = map[string]any{
			"type":     "function",
			"function": map[string]string{"name": req.Tool.Name},
		}
	}

	body, err := json.Marshal(requestPayload)
	if err != nil {
		return CompletionResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, maxOpenAIResponseBytes))
	if err != nil {
		return CompletionResponse{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CompletionResponse{}, fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return CompletionResponse{}, err
	}
	if len(parsed.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("openai response does not contain choices")
	}

	msg := parsed.Choices[0].Message
	out := CompletionResponse{Text: strings.TrimSpace(msg.Content)}
	if parsed.Usage != nil {
		out.Usage = Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens}
	}
	if req.Tool != nil {
		for _, call := range msg.ToolCalls {
			if call.Function.Name == req.Tool.Name && strings.TrimSpace(call.Function.Arguments) != "" {
				out.ToolInput = json.RawMessage(call.Function.Arguments)
				break
			}
		}
	}

	if out.Text == "" && out.ToolInput == nil {
		return out, ErrNoContent
	}
	return out, nil
}

type chatCompletionsRequest struct {
	Model       string               `json:"model"`
	Messages    []chatMessageRequest `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Tools       []chatTool           `json:"tools,omitempty"`
	ToolChoice  any                  `json:"tool_choice,omitempty"`
}

type chatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}
