// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultTaskTimeout is the default timeout for a full task run.
	DefaultTaskTimeout = 10 * time.Minute
	// DefaultSendPacing is the delay between consecutive media sends of a carousel.
	DefaultSendPacing = 1 * time.Second
	// DefaultWorkDirTTL is how long an orphaned task work directory may live
	// before the sweeper removes it.
	DefaultWorkDirTTL = 1 * time.Hour
	// DefaultSimulateTime is the default time to simulate processing in the mock extractor.
	DefaultSimulateTime = 1 * time.Second
)

// Target geometry for normalized output.
const (
	// TargetWidth is the width every delivered video conforms to.
	TargetWidth = 720
	// TargetHeight is the height every delivered video conforms to.
	TargetHeight = 1280
)

// Extractor identifiers.
const (
	// ExtractorYTdlp is the yt-dlp extractor identifier.
	ExtractorYTdlp = "ytdlp"
	// ExtractorMock is the mock extractor identifier for testing.
	ExtractorMock = "mock"
)

// User-facing messages. The bot speaks Russian, matching its audience.
const (
	// MsgWelcome greets a new user after /start.
	MsgWelcome = "👋 Привет! Отправь мне ссылку на видео 🎥\n" +
		"Я помогу скачать видео и посты из Instagram, TikTok, Pinterest.\n\n" +
		"⚡ Поддерживаются только вертикальные видео (9:16, 720x1280)."
	// MsgUnrecognized is sent when the URL matches no supported platform.
	MsgUnrecognized = "⚠️ Формат не поддерживается или ссылка не распознана."
	// MsgStillProcessing is sent when the user already has a task in flight.
	MsgStillProcessing = "⏳ Подожди чуть-чуть, я ещё обрабатываю предыдущее видео..."
	// MsgDone closes a successful delivery.
	MsgDone = "✅ Видео загружено!"
	// MsgFailedPrefix prefixes the failure notice; the original URL is appended.
	MsgFailedPrefix = "⚠️ Не удалось скачать видео. Вот ссылка: "
	// MsgSubscribeRequired asks the user to subscribe to the gating channel.
	MsgSubscribeRequired = "❗ Чтобы пользоваться ботом, подпишитесь на канал "
	// MsgSubscribeConfirmed acknowledges a verified subscription.
	MsgSubscribeConfirmed = "Спасибо за подписку! Теперь отправьте ссылку на видео или пост."
	// MsgSubscribeNotFound is sent when the subscription check comes back negative.
	MsgSubscribeNotFound = "❗ Я не вижу вашу подписку. Проверьте подписку на канал и попробуйте снова."
	// MsgNoCaptionForRewrite is sent when /rewrite has nothing to work with.
	MsgNoCaptionForRewrite = "Нет текста для рерайта. Сначала скачайте видео с описанием."
	// MsgRewriteFailed is sent when the rewrite call fails.
	MsgRewriteFailed = "⚠️ Не удалось сделать рерайт"
	// MsgPromo pitches the promotion service.
	MsgPromo = "🚀 Хотите продвинуть своё видео? Жмите кнопку ниже!"
)

// Status message fragments.
const (
	// StatusTitle heads every status message.
	StatusTitle = "Контент машина"
	// StatusInProgress marks a running task.
	StatusInProgress = "⏳ Обработка вашего Reels"
	// StatusDone marks a finished task.
	StatusDone = "✅ Задача успешно выполнена!"
	// StatusFailed marks a task that ended on the failure path.
	StatusFailed = "⚠️ Не удалось обработать видео."
)

// HTTP response messages for the ops surface.
const (
	// RespStatsRetrieved is returned when session stats are successfully retrieved.
	RespStatsRetrieved = "stats retrieved"
)
