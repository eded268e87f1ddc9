package validator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Judge answers a validation prompt with raw model text
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// JudgeFunc adapts a function to the Judge interface
type JudgeFunc func(ctx context.Context, prompt string) (string, error)

func (f JudgeFunc) Judge(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const judgeSystemPrompt = "You review automated PII detections in scanned documents. Answer with a single minified JSON object and nothing else."

// OpenAIJudge asks any OpenAI compatible chat completion endpoint
type OpenAIJudge struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIJudge creates a judge backed by client
func NewOpenAIJudge(client *openai.Client, model string) *OpenAIJudge {
	return &OpenAIJudge{
		client:      client,
		model:       model,
		temperature: 0.1,
	}
}

// Judge implements Judge
func (j *OpenAIJudge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: j.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: judgeSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: j.temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate content")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from judgment model")
	}
	return resp.Choices[0].Message.Content, nil
}
