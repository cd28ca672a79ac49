// Package ai provides optional language-model capabilities: caption rewrite
// and audio transcription. Both are disabled when no API key is configured.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelgrab/internal/config"
	"reelgrab/internal/errs"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// rewriteSystemPrompt instructs the model to act as a copywriter.
	rewriteSystemPrompt = "Ты опытный копирайтер. Перепиши текст своими словами, " +
		"сохранив смысл и тон. Отвечай только переписанным текстом, без пояснений."
	// rewriteMaxTokens bounds the rewrite response length.
	rewriteMaxTokens = 256
)

// Client holds the language-model connection. A nil inner client means the
// capability is disabled.
type Client struct {
	log *slog.Logger
	cfg *config.Config
	api *openai.Client
}

// New creates the client. With an empty API key every call returns
// ErrCapabilityDisabled.
func New(log *slog.Logger, cfg *config.Config) *Client {
	client := &Client{
		log: log.With(slog.String("package", "ai")),
		cfg: cfg,
	}

	if cfg.AI.APIKey != "" {
		client.api = openai.NewClient(cfg.AI.APIKey)
	}

	return client
}

// Enabled reports whether the capability is configured.
func (c *Client) Enabled() bool {
	return c.api != nil
}

// Rewrite rephrases caption text while preserving its meaning.
func (c *Client) Rewrite(ctx context.Context, text string) (string, error) {
	if c.api == nil {
		return "", errs.ErrCapabilityDisabled
	}

	if strings.TrimSpace(text) == "" {
		return "", errs.ErrNoCaption
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.cfg.AI.Model,
		MaxTokens: rewriteMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rewriteSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Transcribe extracts speech text from a media file.
func (c *Client) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	if c.api == nil {
		return "", errs.ErrCapabilityDisabled
	}

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: mediaPath,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
