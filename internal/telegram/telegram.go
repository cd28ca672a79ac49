// Package telegram adapts the Bot API client to the delivery and status
// reporting contracts of the pipeline.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"reelgrab/internal/config"
	"reelgrab/internal/coordinator"
	"reelgrab/internal/observability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client wraps the Bot API connection. It implements coordinator.Delivery
// and coordinator.StatusReporter.
type Client struct {
	log     *slog.Logger
	cfg     *config.Config
	api     *tgbotapi.BotAPI
	metrics *observability.Metrics
}

// New authenticates against the Bot API and returns a client.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("bot api auth: %w", err)
	}

	api.Debug = cfg.Bot.Debug

	log = log.With(slog.String("package", "telegram"))
	log.Info("bot authorized", slog.String("username", api.Self.UserName))

	return &Client{
		log:     log,
		cfg:     cfg,
		api:     api,
		metrics: metrics,
	}, nil
}

// API exposes the underlying Bot API client for the update loop.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// SendMedia sends one local media file. Videos are sent streamable; image
// extensions go out as photos.
func (c *Client) SendMedia(_ context.Context, userKey int64, path string) error {
	ext := strings.ToLower(filepath.Ext(path))

	var msg tgbotapi.Chattable

	if photoExts[ext] {
		msg = tgbotapi.NewPhoto(userKey, tgbotapi.FilePath(path))
	} else {
		video := tgbotapi.NewVideo(userKey, tgbotapi.FilePath(path))
		video.SupportsStreaming = true
		msg = video
	}

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send media: %w", err)
	}

	return nil
}

// SendText sends a plain HTML-formatted text message.
func (c *Client) SendText(_ context.Context, userKey int64, text string) error {
	msg := tgbotapi.NewMessage(userKey, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}

	return nil
}

// SendClosing sends the final acknowledgment, attaching the promo keyboard
// when a promo URL is configured.
func (c *Client) SendClosing(_ context.Context, userKey int64, text string) error {
	msg := tgbotapi.NewMessage(userKey, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if c.cfg.Bot.PromoURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🚀 Продвинуть видео", c.cfg.Bot.PromoURL),
			),
		)
	}

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send closing: %w", err)
	}

	return nil
}

// Post sends the status message and returns a handle for in-place edits.
func (c *Client) Post(_ context.Context, userKey int64, text string) (coordinator.StatusHandle, error) {
	msg := tgbotapi.NewMessage(userKey, text)
	msg.ParseMode = tgbotapi.ModeHTML

	sent, err := c.api.Send(msg)
	if err != nil {
		return coordinator.StatusHandle{}, fmt.Errorf("post status: %w", err)
	}

	return coordinator.StatusHandle{
		ChatID:    sent.Chat.ID,
		MessageID: sent.MessageID,
	}, nil
}

// Update edits the status message in place. Edit failures are swallowed:
// the pipeline must never stop because a status edit failed.
func (c *Client) Update(_ context.Context, handle coordinator.StatusHandle, text string) {
	if handle.IsZero() {
		return
	}

	edit := tgbotapi.NewEditMessageText(handle.ChatID, handle.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := c.api.Send(edit); err != nil {
		c.metrics.StatusEditFailures.Inc()
		c.log.Debug("status edit failed",
			slog.Int64("chat_id", handle.ChatID),
			slog.Int("message_id", handle.MessageID),
			slog.Any("error", err))
	}
}
