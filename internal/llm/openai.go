package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// OpenAI is a Client over any OpenAI-compatible chat-completions endpoint
// (OpenAI itself, or DeepSeek-style providers via a custom base URL).
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAI constructs a client. baseURL may be empty for the default
// endpoint.
func NewOpenAI(apiKey, baseURL, modelID string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       modelID,
		maxTokens:   1000,
		temperature: 0.7,
	}
}

// Complete converts the window turns to provider messages and returns the
// first choice's content.
func (c *OpenAI) Complete(ctx context.Context, system string, turns []model.Turn) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    buildMessages(system, turns),
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(system string, turns []model.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, turn := range turns {
		switch turn.Role {
		case model.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
		default:
			if turn.ImageURL != "" {
				msgs = append(msgs, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(turn.Content),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: turn.ImageURL,
					}),
				}))
			} else {
				msgs = append(msgs, openai.UserMessage(turn.Content))
			}
		}
	}
	return msgs
}
