package ai

import (
	"strings"

	"github.com/fdg312/dining-planner/internal/config"
)

func NewProvider(cfg *config.Config) Provider {
	mode := strings.ToLower(strings.TrimSpace(cfg.AI.Mode))
	if mode == "" {
		mode = config.AIModeMock
	}

	switch mode {
	case config.AIModeAnthropic:
		return NewAnthropicProvider(cfg)
	case config.AIModeOpenAI:
		return NewOpenAIProvider(cfg)
	default:
		return NewMockProvider()
	}
}
