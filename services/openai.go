package services

import (
	"github.com/athapong/pii-mcp/pkg/config"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// GeminiOpenAIBaseURL is the OpenAI compatible endpoint of the Gemini API
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// NewJudgeClient creates the chat client used for contextual validation.
// Any OpenAI compatible endpoint can be targeted through BaseURL.
func NewJudgeClient(cfg config.ValidationConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("validation API key is not set, please set LLM_API_KEY in MCP Config")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(clientConfig), nil
}
