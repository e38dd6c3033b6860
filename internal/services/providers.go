package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/pkg/logger"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// bufferedReply dispatches to a provider SDK for endpoints that never stream.
// Each provider returns the whole reply at once; the caller re-chunks it.
func (c *ChatClient) bufferedReply(ctx context.Context, history []models.Message) (string, error) {
	logger.Infof("[Chat] Using provider: %s, model: %s", c.cfg.Provider, c.cfg.Model)

	switch c.cfg.Provider {
	case "anthropic":
		return c.callAnthropic(ctx, history)
	case "ollama":
		return c.callOllama(ctx, history)
	case "gemini":
		return c.callGemini(ctx, history)
	default:
		// openai and other OpenAI-compatible services
		return c.callOpenAI(ctx, history)
	}
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs (including custom endpoints)
func (c *ChatClient) callOpenAI(ctx context.Context, history []models.Message) (string, error) {
	clientConfig := openai.DefaultConfig(c.cfg.Token)
	if c.cfg.URL != "" {
		clientConfig.BaseURL = c.cfg.URL
	}
	client := openai.NewClientWithConfig(clientConfig)

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// callAnthropic handles Anthropic Claude API using the native SDK
func (c *ChatClient) callAnthropic(ctx context.Context, history []models.Message) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(c.cfg.Token),
	)

	model := c.cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return content.String(), nil
}

// callOllama handles Ollama API using the native SDK
func (c *ChatClient) callOllama(ctx context.Context, history []models.Message) (string, error) {
	baseURL := c.cfg.URL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := c.cfg.Model
	if model == "" {
		model = "llama3"
	}

	messages := make([]api.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	return content.String(), nil
}

// callGemini handles Google Gemini API using the native SDK. The SDK takes a
// single prompt, so the ordered history is flattened into one transcript.
func (c *ChatClient) callGemini(ctx context.Context, history []models.Message) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: c.cfg.Token,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := c.cfg.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	var prompt strings.Builder
	for _, m := range history {
		prompt.WriteString(m.Role)
		prompt.WriteString(": ")
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt.String()), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return resp.Text(), nil
}
