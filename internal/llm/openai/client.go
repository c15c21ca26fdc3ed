// Package openai adapts the OpenAI chat-completions API to llm.Provider.
package openai

import (
	"context"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"cogcore/internal/config"
	"cogcore/internal/llm"
)

// Client wraps the OpenAI SDK behind llm.Provider.
type Client struct {
	sdk   sdk.Client
	model string
}

// New constructs a Client from config. httpClient may be nil.
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

func (c *Client) pickModel(model string) string {
	if strings.TrimSpace(model) == "" {
		return c.model
	}
	return model
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.pickModel(model)),
		Messages: adaptMessages(msgs),
	}
	if toolDefs := adaptTools(tools); len(toolDefs) > 0 {
		params.Tools = toolDefs
	}
	params.MaxTokens = param.NewOpt(int64(1024))

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Message{}, err
	}
	if len(resp.Choices) == 0 {
		return llm.Message{Role: "assistant"}, nil
	}
	return llm.Message{Role: "assistant", Content: resp.Choices[0].Message.Content}, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func adaptTools(tools []llm.ToolSchema) []sdk.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]sdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		def := sdk.FunctionDefinitionParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			Parameters:  t.Parameters,
		}
		out = append(out, sdk.ChatCompletionFunctionTool(def))
	}
	return out
}
