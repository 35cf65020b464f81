package ai

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	"newsroom/domain/model"
	"newsroom/domain/repository"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const (
	ProviderOpenAI           = "openai"
	ProviderAnthropic        = "anthropic"
	ProviderOpenAICompatible = "openai-compatible"

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	maxOutputTokens       = 600
)

var platformStyles = map[string]string{
	"twitter":  "Write one post of at most 270 characters. Plain text, no more than two hashtags, no links to invented sources.",
	"linkedin": "Write a professional LinkedIn post of 80 to 200 words with a short hook line and a closing question.",
	"facebook": "Write a friendly Facebook page post of 40 to 120 words. Conversational, no hashtags.",
	"mastodon": "Write one Mastodon post of at most 480 characters. Plain text, up to three lowercase hashtags.",
}

// Client generates platform copy through the user's own provider key.
type Client struct {
	baseURL string
}

var _ repository.IAIProvider = (*Client)(nil)

// NewClient returns a generator. baseURL overrides the provider endpoint when set.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimSpace(baseURL)}
}

func (c *Client) Generate(ctx context.Context, req model.GenerationRequest) (string, error) {
	lm, err := c.languageModel(req)
	if err != nil {
		return "", err
	}
	resp, err := jetai.GenerateText(ctx,
		promptMessages(SystemPrompt(req.Platform), req.Prompt),
		jetai.WithModel(lm),
		jetai.WithMaxOutputTokens(maxOutputTokens),
	)
	if err != nil {
		return "", &model.ProviderError{Provider: req.Provider, Err: err}
	}
	text, err := responseText(resp)
	if err != nil {
		return "", &model.ProviderError{Provider: req.Provider, Err: err}
	}
	return text, nil
}

// SystemPrompt returns the house style for a platform.
func SystemPrompt(platform string) string {
	style, ok := platformStyles[platform]
	if !ok {
		style = "Write one concise social media post."
	}
	return "You are a newsroom social editor. Summarize the supplied articles accurately for the audience of the target network. " +
		style + " Reply with the post text only."
}

func (c *Client) languageModel(req model.GenerationRequest) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: empty api key", model.ErrCredentialsNotConfigured)
	}
	modelID := strings.TrimSpace(req.Model)

	switch strings.ToLower(strings.TrimSpace(req.Provider)) {
	case ProviderAnthropic:
		if modelID == "" {
			modelID = defaultAnthropicModel
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if c.baseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(c.baseURL, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	case ProviderOpenAI, ProviderOpenAICompatible, "":
		if modelID == "" {
			modelID = defaultOpenAIModel
		}
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(apiKey),
			openaioption.WithMaxRetries(0),
		}
		if base := normalizeOpenAIBaseURL(c.baseURL); base != "" {
			opts = append(opts, openaioption.WithBaseURL(base))
		}
		client := openaiclient.NewClient(opts...)
		return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
	}
	return nil, fmt.Errorf("%w: ai provider %q", model.ErrInvalidInput, req.Provider)
}

func promptMessages(systemPrompt, prompt string) []jetapi.Message {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})
	return messages
}

func responseText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response")
	}
	var full strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.(*jetapi.TextBlock); ok {
			full.WriteString(tb.Text)
		}
	}
	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// normalizeOpenAIBaseURL makes sure the path ends in /v1.
func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
