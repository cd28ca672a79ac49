// Package bot runs the update dispatch loop: commands, callbacks and URL
// submissions. It owns the single-flight gate and the subscription gate;
// everything past acceptance belongs to the coordinator.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelgrab/internal/config"
	"reelgrab/internal/consts"
	"reelgrab/internal/coordinator"
	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
	"reelgrab/internal/observability"
	"reelgrab/internal/platform"
	"reelgrab/internal/session"
	"reelgrab/internal/telegram"
	"reelgrab/pkg/urls"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data identifiers.
const (
	callbackCheckSubscription = "check_subscription"
	callbackAdminStats        = "admin_stats"
)

// botAPI is the Bot API surface the dispatcher uses. *tgbotapi.BotAPI
// satisfies it.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot dispatches incoming updates.
type Bot struct {
	log        *slog.Logger
	cfg        *config.Config
	client     *telegram.Client
	api        botAPI
	classifier *platform.Classifier
	sessions   *session.Store
	coord      *coordinator.Coordinator
	rewriter   Rewriter
	metrics    *observability.Metrics
}

// Rewriter rephrases caption text. Optional capability.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// New creates the bot dispatcher.
func New(
	log *slog.Logger,
	cfg *config.Config,
	client *telegram.Client,
	classifier *platform.Classifier,
	sessions *session.Store,
	coord *coordinator.Coordinator,
	rewriter Rewriter,
	metrics *observability.Metrics,
) *Bot {
	return &Bot{
		log:        log.With(slog.String("package", "bot")),
		cfg:        cfg,
		client:     client,
		api:        client.API(),
		classifier: classifier,
		sessions:   sessions,
		coord:      coord,
		rewriter:   rewriter,
		metrics:    metrics,
	}
}

// Run consumes updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.cfg.Bot.PollTimeout

	updates := b.api.GetUpdatesChan(updateCfg)

	b.log.InfoContext(ctx, "update loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("update loop stopped")

			return
		case update := <-updates:
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userKey := msg.Chat.ID
	b.sessions.IncMessageCount(userKey)

	// Commands and submissions alike sit behind the subscription gate; only
	// the check_subscription callback stays reachable so users can verify.
	if !b.isSubscribed(ctx, userKey) {
		b.sendSubscribePrompt(ctx, userKey)

		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)

		return
	}

	b.handleSubmission(ctx, userKey, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userKey := msg.Chat.ID

	switch msg.Command() {
	case "start", "menu":
		b.sendWelcome(ctx, userKey)
	case "rocket":
		b.reply(ctx, userKey, consts.MsgPromo, b.promoKeyboard())
	case "rewrite":
		b.handleRewrite(ctx, userKey)
	default:
		b.reply(ctx, userKey, consts.MsgUnrecognized, nil)
	}
}

// handleSubmission is the URL intake path: normalize, classify, accept.
func (b *Bot) handleSubmission(ctx context.Context, userKey int64, text string) {
	log := b.log.With(slog.Int64("user_key", userKey))

	// Scheme-less links are common in chat; default them to https before
	// validation so classification sees a full URL.
	url := urls.Fix(urls.Normalize(text))
	if !urls.IsValid(url) {
		b.reply(ctx, userKey, consts.MsgUnrecognized, nil)

		return
	}

	plat := b.classifier.Classify(url)
	if plat == entity.PlatformUnrecognized {
		log.DebugContext(ctx, "unrecognized platform", slog.String("url", url))
		b.reply(ctx, userKey, consts.MsgUnrecognized, nil)

		return
	}

	if err := b.sessions.TryBegin(userKey, url); err != nil {
		if errors.Is(err, errs.ErrTaskInFlight) {
			b.metrics.TasksRejected.Inc()
			b.reply(ctx, userKey, consts.MsgStillProcessing, nil)

			return
		}

		log.ErrorContext(ctx, "failed to accept submission", slog.Any("error", err))

		return
	}

	go b.coord.Run(ctx, userKey, url, plat)
}

func (b *Bot) handleRewrite(ctx context.Context, userKey int64) {
	ses := b.sessions.Get(userKey)
	if ses.LastCaption == "" {
		b.reply(ctx, userKey, consts.MsgNoCaptionForRewrite, nil)

		return
	}

	if b.rewriter == nil {
		b.reply(ctx, userKey, consts.MsgRewriteFailed, nil)

		return
	}

	text, err := b.rewriter.Rewrite(ctx, ses.LastCaption)
	if err != nil {
		b.log.WarnContext(ctx, "rewrite failed", slog.Int64("user_key", userKey), slog.Any("error", err))
		b.reply(ctx, userKey, consts.MsgRewriteFailed, nil)

		return
	}

	b.reply(ctx, userKey, text, nil)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge first so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.DebugContext(ctx, "callback ack failed", slog.Any("error", err))
	}

	if query.Message == nil {
		return
	}

	userKey := query.Message.Chat.ID

	switch query.Data {
	case callbackCheckSubscription:
		if b.isSubscribed(ctx, userKey) {
			b.reply(ctx, userKey, consts.MsgSubscribeConfirmed, nil)

			return
		}

		b.reply(ctx, userKey, consts.MsgSubscribeNotFound, nil)
	case callbackAdminStats:
		b.handleAdminStats(ctx, userKey)
	}
}

// handleAdminStats reports aggregate session stats to the owner only.
func (b *Bot) handleAdminStats(ctx context.Context, userKey int64) {
	if b.cfg.Bot.OwnerID == 0 || userKey != b.cfg.Bot.OwnerID {
		return
	}

	stats := b.sessions.Stats()
	text := fmt.Sprintf("👥 Пользователи: %d\n⏳ В работе: %d\n✉️ Сообщений: %d",
		stats.Users, stats.InFlight, stats.TotalMessages)

	b.reply(ctx, userKey, text, nil)
}

// isSubscribed checks membership in the gating channel. The gate is open
// when no channel is configured or the user is the owner. Check errors fail
// open: blocking everyone on an API hiccup is worse than one free pass.
func (b *Bot) isSubscribed(ctx context.Context, userKey int64) bool {
	channel := b.cfg.Bot.ChannelUsername
	if channel == "" || userKey == b.cfg.Bot.OwnerID {
		return true
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userKey,
		},
	})
	if err != nil {
		b.log.WarnContext(ctx, "subscription check failed",
			slog.Int64("user_key", userKey), slog.Any("error", err))

		return true
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true
	}

	return false
}

func (b *Bot) sendWelcome(ctx context.Context, userKey int64) {
	if b.cfg.Bot.WelcomeVideo != "" {
		video := tgbotapi.NewVideo(userKey, tgbotapi.FilePath(b.cfg.Bot.WelcomeVideo))
		video.Caption = consts.MsgWelcome
		video.SupportsStreaming = true

		if _, err := b.api.Send(video); err == nil {
			return
		}

		b.log.WarnContext(ctx, "welcome video send failed, falling back to text")
	}

	b.reply(ctx, userKey, consts.MsgWelcome, b.menuKeyboard(userKey))
}

func (b *Bot) sendSubscribePrompt(ctx context.Context, userKey int64) {
	text := consts.MsgSubscribeRequired + b.cfg.Bot.ChannelUsername

	rows := [][]tgbotapi.InlineKeyboardButton{}
	if b.cfg.Bot.ChannelURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Подписаться", b.cfg.Bot.ChannelURL)))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Я подписался", callbackCheckSubscription)))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.reply(ctx, userKey, text, &keyboard)
}

func (b *Bot) menuKeyboard(userKey int64) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}

	if b.cfg.Bot.PromoURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🚀 Продвинуть видео", b.cfg.Bot.PromoURL)))
	}

	if b.cfg.Bot.OwnerID != 0 && userKey == b.cfg.Bot.OwnerID {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", callbackAdminStats)))
	}

	if len(rows) == 0 {
		return nil
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	return &keyboard
}

func (b *Bot) promoKeyboard() *tgbotapi.InlineKeyboardMarkup {
	if b.cfg.Bot.PromoURL == "" {
		return nil
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🚀 Продвинуть видео", b.cfg.Bot.PromoURL)))

	return &keyboard
}

func (b *Bot) reply(ctx context.Context, userKey int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(userKey, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	if _, err := b.api.Send(msg); err != nil {
		b.log.WarnContext(ctx, "reply send failed",
			slog.Int64("user_key", userKey), slog.Any("error", err))
	}
}
