package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/example/lumi/internal/dictionary"
	"github.com/example/lumi/internal/excel"
	"github.com/example/lumi/internal/learning"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram API the bot talks through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Learner is the learning service as seen by the bot
type Learner interface {
	RegisterUser(ctx context.Context, u models.User) (models.User, error)
	User(ctx context.Context, userID int64) (models.User, error)
	SetNotifications(ctx context.Context, userID int64, enabled bool) (models.User, error)
	SetNotificationHour(ctx context.Context, userID int64, hour int) (models.User, error)
	SetLanguages(ctx context.Context, userID int64, sourceLang, targetLang string) (models.User, error)
	RecordTranslation(ctx context.Context, userID int64, sourceText, targetText, sourceLang, targetLang string) (learning.RecordResult, error)
	DueItems(ctx context.Context, userID int64, limit int) ([]models.ReviewableItem, error)
	NextDue(ctx context.Context, userID int64) (models.ReviewableItem, bool, error)
	Review(ctx context.Context, userID int64, itemID string, rating sr.Rating) (learning.ReviewResult, error)
	Stats(ctx context.Context, userID int64) (models.ReviewStats, error)
	Progress(ctx context.Context, userID int64) (models.UserProgress, error)
	History(ctx context.Context, userID int64, limit int) ([]models.Translation, error)
	BuildQuiz(ctx context.Context, userID int64, kind models.QuizKind) (models.Quiz, error)
	SubmitQuiz(ctx context.Context, q models.Quiz, answers map[string]int) (learning.QuizOutcome, error)
}

// Translator produces translations and chat replies
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Chat(ctx context.Context, message, language string) (string, error)
}

// Dictionary looks words up
type Dictionary interface {
	Lookup(ctx context.Context, word, lang string) (dictionary.Entry, error)
}

// Importer loads vocabulary from uploaded spreadsheets
type Importer interface {
	Import(ctx context.Context, userID int64, name string, r io.Reader, config excel.ImportConfig) (*excel.ImportResult, error)
}

// Config represents the configuration for the bot
type Config struct {
	Token string
	Debug bool
	// Time allowed for handling one update
	HandlerTimeout time.Duration
	// Long-polling timeout
	PollTimeout time.Duration
	// Max size of an uploaded vocabulary file
	MaxUploadBytes int64
	HistorySize    int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() Config {
	return Config{
		HandlerTimeout: 30 * time.Second,
		PollTimeout:    60 * time.Second,
		MaxUploadBytes: 5 << 20,
		HistorySize:    10,
	}
}

// Deps are the services the bot delegates to
type Deps struct {
	Learner    Learner
	Translator Translator
	Dictionary Dictionary
	Importer   Importer
}

// Bot represents the Telegram bot application
type Bot struct {
	api      Sender
	botAPI   *tgbotapi.BotAPI
	deps     Deps
	cfg      Config
	log      *zap.Logger
	sessions *quizSessions
	http     *http.Client
	wg       sync.WaitGroup
}

// New connects to Telegram and creates the bot
func New(cfg Config, deps Deps, log *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	botAPI.Debug = cfg.Debug
	log.Info("authorized on account", zap.String("username", botAPI.Self.UserName))

	b := NewWithSender(botAPI, cfg, deps, log)
	b.botAPI = botAPI
	return b, nil
}

// NewWithSender creates a bot on top of an existing API client
func NewWithSender(api Sender, cfg Config, deps Deps, log *zap.Logger) *Bot {
	def := DefaultConfig()
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = def.HandlerTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}

	return &Bot{
		api:      api,
		deps:     deps,
		cfg:      cfg,
		log:      log,
		sessions: newQuizSessions(),
		http:     &http.Client{Timeout: cfg.HandlerTimeout},
	}
}

// Start receives updates until ctx is cancelled, then waits for the
// handlers still running.
func (b *Bot) Start(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("bot has no Telegram connection")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = int(b.cfg.PollTimeout.Seconds())
	updates := b.botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.botAPI.StopReceivingUpdates()
			b.wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches one update. Failures are logged and answered
// with a generic message; a panic never takes the bot down.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	var (
		err    error
		chatID int64
	)
	switch {
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.HandleMessage(ctx, update.Message)
		}
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}

	if err != nil {
		b.log.Error("failed to handle update", zap.Int("update_id", update.UpdateID), zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, "❌ Something went wrong. Please try again later.")
	}
}

// SendReminder implements the scheduler's Notifier
func (b *Bot) SendReminder(_ context.Context, r learning.Reminder) error {
	count := len(r.Due)
	noun := "items"
	if count == 1 {
		noun = "item"
	}

	msg := tgbotapi.NewMessage(r.User.ID, fmt.Sprintf("⏰ You have %d %s waiting for review.", count, noun))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️ Start review", callbackReview)),
	)
	msg.ReplyMarkup = keyboard

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder to %d: %w", r.User.ID, err)
	}
	b.log.Info("reminder sent", zap.Int64("user_id", r.User.ID), zap.Int("due", count))
	return nil
}

func (b *Bot) send(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// reply sends plain text and only logs failures
func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("failed to reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyHTML(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return b.send(msg)
}
