package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/example/lumi/internal/ai"
	"github.com/example/lumi/internal/dictionary"
	"github.com/example/lumi/internal/learning"
	"github.com/example/lumi/internal/quiz"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/internal/storage"
	"github.com/example/lumi/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Constants for callback data
const (
	callbackReview = "review"
	prefixRate     = "rate:"
	prefixAnswer   = "answer:"
	prefixQuiz     = "quiz:"
)

const (
	dueListSize     = 10
	maxMeanings     = 3
	maxDefinitions  = 2
	maxImportErrors = 5
	languageCodeMin = 2
	languageCodeMax = 3
)

const helpText = `📚 <b>Lumi</b> helps you remember the words you translate.

Send any text and I will translate it. Words you translate often become flashcards.

<b>Commands</b>
/review - review the next due card
/due - list cards waiting for review
/quiz - multiple-choice quiz from your translations
/quiz cards - quiz from your flashcards
/stats - flashcard statistics
/progress - XP, level, streak and badges
/history - recent translations
/define &lt;word&gt; - look up an English word
/chat &lt;message&gt; - talk to the tutor
/lang &lt;from&gt; &lt;to&gt; - set the translation languages
/notify on|off - turn review reminders on or off
/time &lt;hour&gt; - set the reminder hour (0-23)

Send an .xlsx or .csv file (word, translation, category) to import vocabulary.`

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(chatID, user)
	case "help":
		return b.replyHTML(chatID, helpText, nil)
	case "review":
		return b.sendNextReview(ctx, chatID, user.ID)
	case "due":
		return b.handleDue(ctx, chatID, user.ID)
	case "quiz":
		return b.handleQuiz(ctx, chatID, user.ID, args)
	case "stats":
		return b.handleStats(ctx, chatID, user.ID)
	case "progress":
		return b.handleProgress(ctx, chatID, user.ID)
	case "history":
		return b.handleHistory(ctx, chatID, user.ID)
	case "define":
		return b.handleDefine(ctx, chatID, args)
	case "chat":
		return b.handleChat(ctx, chatID, user, args)
	case "notify":
		return b.handleNotifyCommand(ctx, chatID, user, args)
	case "time":
		return b.handleTimeCommand(ctx, chatID, user.ID, args)
	case "lang":
		return b.handleLangCommand(ctx, chatID, user.ID, args)
	default:
		return b.sendText(chatID, "Unknown command. Send /help for the list of commands.")
	}
}

// HandleMessage translates plain text and imports uploaded vocabulary files
func (b *Bot) HandleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return nil
	}

	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	if message.Document != nil {
		return b.handleDocument(ctx, message.Chat.ID, user.ID, message.Document)
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}
	return b.handleTranslate(ctx, message.Chat.ID, user, text)
}

// ensureUser registers the sender on first contact
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (models.User, error) {
	user, err := b.deps.Learner.User(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	user, err = b.deps.Learner.RegisterUser(ctx, models.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	b.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (b *Bot) handleStart(chatID int64, user models.User) error {
	name := user.FirstName
	if name == "" {
		name = user.Username
	}

	text := fmt.Sprintf("👋 Hi, %s!\n\nI translate from %s to %s. Send me a word or a phrase to begin.\n\n%s",
		html.EscapeString(name),
		ai.LanguageName(user.SourceLang),
		ai.LanguageName(user.TargetLang),
		helpText,
	)
	return b.replyHTML(chatID, text, nil)
}

func (b *Bot) handleTranslate(ctx context.Context, chatID int64, user models.User, text string) error {
	translated, err := b.deps.Translator.Translate(ctx, text, user.SourceLang, user.TargetLang)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return b.sendText(chatID, "Translation is not available right now. You can still /review and /quiz.")
	case ai.IsRetryable(err):
		b.log.Warn("translation provider unavailable", zap.Int64("user_id", user.ID), zap.Error(err))
		return b.sendText(chatID, "⏳ The translation service is busy. Please try again in a minute.")
	case err != nil:
		return fmt.Errorf("failed to translate: %w", err)
	}

	result, err := b.deps.Learner.RecordTranslation(ctx, user.ID, text, translated, user.SourceLang, user.TargetLang)
	if err != nil {
		return fmt.Errorf("failed to record translation: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔤 <b>%s</b>\n%s", html.EscapeString(text), html.EscapeString(translated))
	if result.Flashcard != nil {
		sb.WriteString("\n\n🎴 You keep coming back to this one, so it is now a flashcard. /review")
	}
	return b.replyHTML(chatID, sb.String(), nil)
}

// sendNextReview shows a random due card with rating buttons
func (b *Bot) sendNextReview(ctx context.Context, chatID, userID int64) error {
	item, ok, err := b.deps.Learner.NextDue(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get due item: %w", err)
	}
	if !ok {
		return b.sendText(chatID, "🎉 Nothing to review right now. Come back later!")
	}

	text := fmt.Sprintf("🧠 <b>%s</b>\n\nAnswer: <tg-spoiler>%s</tg-spoiler>\n\nHow well did you remember it?",
		html.EscapeString(item.SourceText),
		html.EscapeString(item.TargetText),
	)
	return b.replyHTML(chatID, text, ratingKeyboard(item.ID))
}

func ratingKeyboard(itemID string) tgbotapi.InlineKeyboardMarkup {
	labels := map[sr.Rating]string{
		sr.Easy:   "😊 Easy",
		sr.Medium: "🤔 Medium",
		sr.Hard:   "😓 Hard",
	}

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(labels))
	for _, r := range sr.Ratings() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(labels[r], prefixRate+itemID+":"+r.String()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleDue(ctx context.Context, chatID, userID int64) error {
	items, err := b.deps.Learner.DueItems(ctx, userID, 0)
	if err != nil {
		return fmt.Errorf("failed to get due items: %w", err)
	}
	if len(items) == 0 {
		return b.sendText(chatID, "🎉 Nothing is due. Come back later!")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 <b>%d due for review</b>\n\n", len(items))
	for i, item := range items {
		if i == dueListSize {
			fmt.Fprintf(&sb, "…and %d more\n", len(items)-dueListSize)
			break
		}
		fmt.Fprintf(&sb, "• %s\n", html.EscapeString(item.SourceText))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("▶️ Start review", callbackReview)),
	)
	return b.replyHTML(chatID, sb.String(), keyboard)
}

func (b *Bot) handleQuiz(ctx context.Context, chatID, userID int64, args string) error {
	kind := models.QuizFromTranslations
	switch strings.ToLower(args) {
	case "", "translations":
	case "cards", "flashcards", "review":
		kind = models.QuizFromReviewItems
	default:
		return b.sendText(chatID, "Usage: /quiz or /quiz cards")
	}

	return b.startQuiz(ctx, chatID, userID, kind)
}

func (b *Bot) startQuiz(ctx context.Context, chatID, userID int64, kind models.QuizKind) error {
	q, err := b.deps.Learner.BuildQuiz(ctx, userID, kind)
	if errors.Is(err, quiz.ErrNoMaterial) {
		return b.sendText(chatID, "Not enough words for a quiz yet. Translate a few more first!")
	}
	if err != nil {
		return fmt.Errorf("failed to build quiz: %w", err)
	}

	b.sessions.start(q)
	return b.sendQuestion(chatID, q.Questions[0], 0, len(q.Questions))
}

func (b *Bot) sendQuestion(chatID int64, q models.QuizQuestion, index, total int) error {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(q.Options))
	for i, option := range q.Options {
		data := prefixAnswer + q.ID + ":" + strconv.Itoa(i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(option, data)))
	}

	text := fmt.Sprintf("❓ Question %d/%d\n\nWhat is the translation of <b>%s</b>?", index+1, total, html.EscapeString(q.Prompt))
	return b.replyHTML(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64) error {
	stats, err := b.deps.Learner.Stats(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	text := fmt.Sprintf("📊 <b>Your cards</b>\n\n"+
		"Total: %d\n"+
		"Flashcards: %d\n"+
		"Vocabulary words: %d\n"+
		"Due now: %d\n"+
		"Not reviewed yet: %d\n"+
		"Mastered: %d\n"+
		"Average recall strength: %.2f",
		stats.Total, stats.Flashcards, stats.VocabularyWords, stats.Due, stats.New, stats.Mastered, stats.AverageStrength)
	return b.replyHTML(chatID, text, nil)
}

func (b *Bot) handleProgress(ctx context.Context, chatID, userID int64) error {
	p, err := b.deps.Learner.Progress(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get progress: %w", err)
	}

	badges := "none yet"
	if len(p.Badges) > 0 {
		badges = strings.Join(p.Badges, ", ")
	}

	text := fmt.Sprintf("🏅 <b>Your progress</b>\n\n"+
		"Level: %s\n"+
		"XP: %d\n"+
		"Streak: %d days (best %d)\n"+
		"Translations: %d (%d unique)\n"+
		"Reviews: %d\n"+
		"Badges: %s",
		levelOrDefault(p.Level), p.XP, p.StreakDays, p.LongestStreak, p.TotalTranslations, p.UniqueWords, p.ReviewsDone, html.EscapeString(badges))
	return b.replyHTML(chatID, text, nil)
}

func levelOrDefault(l models.Level) models.Level {
	if l == "" {
		return models.LevelBeginner
	}
	return l
}

func (b *Bot) handleHistory(ctx context.Context, chatID, userID int64) error {
	history, err := b.deps.Learner.History(ctx, userID, b.cfg.HistorySize)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	if len(history) == 0 {
		return b.sendText(chatID, "You have not translated anything yet. Send me a word!")
	}

	var sb strings.Builder
	sb.WriteString("🕘 <b>Recent translations</b>\n\n")
	for _, t := range history {
		fmt.Fprintf(&sb, "• %s → %s", html.EscapeString(t.SourceText), html.EscapeString(t.TargetText))
		if t.Frequency > 1 {
			fmt.Fprintf(&sb, " (×%d)", t.Frequency)
		}
		sb.WriteString("\n")
	}
	return b.replyHTML(chatID, sb.String(), nil)
}

func (b *Bot) handleDefine(ctx context.Context, chatID int64, word string) error {
	if word == "" {
		return b.sendText(chatID, "Usage: /define <word>")
	}

	entry, err := b.deps.Dictionary.Lookup(ctx, word, "en")
	switch {
	case errors.Is(err, dictionary.ErrWordNotFound):
		return b.sendText(chatID, fmt.Sprintf("🤷 No definition found for %q.", word))
	case errors.Is(err, dictionary.ErrEmptyWord):
		return b.sendText(chatID, "Usage: /define <word>")
	case err != nil:
		return fmt.Errorf("failed to look up %q: %w", word, err)
	}

	return b.replyHTML(chatID, formatEntry(entry), nil)
}

func formatEntry(entry dictionary.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 <b>%s</b>", html.EscapeString(entry.Word))
	if entry.Phonetic != "" {
		fmt.Fprintf(&sb, " %s", html.EscapeString(entry.Phonetic))
	}
	sb.WriteString("\n")

	for i, m := range entry.Meanings {
		if i == maxMeanings {
			break
		}
		fmt.Fprintf(&sb, "\n<i>%s</i>\n", html.EscapeString(m.PartOfSpeech))
		for j, d := range m.Definitions {
			if j == maxDefinitions {
				break
			}
			fmt.Fprintf(&sb, "%d. %s\n", j+1, html.EscapeString(d.Definition))
			if d.Example != "" {
				fmt.Fprintf(&sb, "   <i>“%s”</i>\n", html.EscapeString(d.Example))
			}
		}
		if len(m.Synonyms) > 0 {
			fmt.Fprintf(&sb, "Synonyms: %s\n", html.EscapeString(strings.Join(m.Synonyms, ", ")))
		}
	}

	if entry.Fallback {
		sb.WriteString("\n<i>From the offline dictionary.</i>")
	}
	return sb.String()
}

func (b *Bot) handleChat(ctx context.Context, chatID int64, user models.User, message string) error {
	if message == "" {
		return b.sendText(chatID, "Usage: /chat <message>")
	}

	reply, err := b.deps.Translator.Chat(ctx, message, user.TargetLang)
	if err != nil {
		return fmt.Errorf("failed to chat: %w", err)
	}
	return b.sendText(chatID, reply)
}

func (b *Bot) handleNotifyCommand(ctx context.Context, chatID int64, user models.User, args string) error {
	var enabled bool
	switch strings.ToLower(args) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	case "":
		text := fmt.Sprintf("Reminders are %s at %02d:00. Use /notify on|off to change.",
			enabledString(user.NotificationEnabled), user.NotificationHour)
		return b.sendText(chatID, text)
	default:
		return b.sendText(chatID, "Please specify on or off: /notify <on|off>")
	}

	updated, err := b.deps.Learner.SetNotifications(ctx, user.ID, enabled)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Reminders %s", enabledString(updated.NotificationEnabled)))
}

func (b *Bot) handleTimeCommand(ctx context.Context, chatID, userID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Please specify the hour (0-23): /time <hour>")
	}

	hour, err := strconv.Atoi(args)
	if err != nil {
		return b.sendText(chatID, "Please specify a valid hour (0-23)")
	}

	if _, err := b.deps.Learner.SetNotificationHour(ctx, userID, hour); err != nil {
		if errors.Is(err, learning.ErrInvalidHour) {
			return b.sendText(chatID, "Please specify a valid hour (0-23)")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Reminders will arrive at %02d:00", hour))
}

func (b *Bot) handleLangCommand(ctx context.Context, chatID, userID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 || !isLanguageCode(fields[0]) || !isLanguageCode(fields[1]) {
		return b.sendText(chatID, "Usage: /lang <from> <to>, for example /lang en es")
	}

	user, err := b.deps.Learner.SetLanguages(ctx, userID, fields[0], fields[1])
	if err != nil {
		return fmt.Errorf("failed to update languages: %w", err)
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Translating from %s to %s",
		ai.LanguageName(user.SourceLang), ai.LanguageName(user.TargetLang)))
}

func isLanguageCode(s string) bool {
	if len(s) < languageCodeMin || len(s) > languageCodeMax {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.From == nil || callback.Message == nil {
		return fmt.Errorf("invalid callback: required fields are missing")
	}

	var (
		toast string
		err   error
	)
	data := callback.Data
	switch {
	case data == callbackReview:
		err = b.sendNextReview(ctx, callback.Message.Chat.ID, callback.From.ID)
	case strings.HasPrefix(data, prefixRate):
		toast, err = b.handleRateCallback(ctx, callback)
	case strings.HasPrefix(data, prefixAnswer):
		toast, err = b.handleAnswerCallback(ctx, callback)
	case strings.HasPrefix(data, prefixQuiz):
		err = b.startQuiz(ctx, callback.Message.Chat.ID, callback.From.ID, models.QuizKind(strings.TrimPrefix(data, prefixQuiz)))
	default:
		b.log.Warn("unknown callback data", zap.String("data", data))
	}

	// Always answer so the client stops its spinner
	if _, reqErr := b.api.Request(tgbotapi.NewCallback(callback.ID, toast)); reqErr != nil {
		b.log.Debug("failed to answer callback", zap.Error(reqErr))
	}
	return err
}

// parseCallback splits "<prefix><id>:<value>"
func parseCallback(data, prefix string) (id, value string, ok bool) {
	rest := strings.TrimPrefix(data, prefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

func (b *Bot) handleRateCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) (string, error) {
	itemID, value, ok := parseCallback(callback.Data, prefixRate)
	if !ok {
		return "", fmt.Errorf("malformed rate callback %q", callback.Data)
	}
	rating, err := sr.ParseRating(value)
	if err != nil {
		return "", err
	}

	chatID := callback.Message.Chat.ID
	result, err := b.deps.Learner.Review(ctx, callback.From.ID, itemID, rating)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.clearKeyboard(chatID, callback.Message.MessageID)
		return "This card no longer exists", nil
	case errors.Is(err, learning.ErrTooManyRetry):
		return "Please try again", nil
	case err != nil:
		return "", fmt.Errorf("failed to review item: %w", err)
	}

	b.clearKeyboard(chatID, callback.Message.MessageID)

	text := fmt.Sprintf("✅ Next review in %s. +%d XP", formatDays(result.Item.IntervalDays), result.XPGained)
	if result.NewlyMaster {
		text += "\n🏆 You have mastered this card!"
	}
	if err := b.sendText(chatID, text); err != nil {
		return "", err
	}

	return rating.String(), b.sendNextReview(ctx, chatID, callback.From.ID)
}

func (b *Bot) handleAnswerCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) (string, error) {
	questionID, value, ok := parseCallback(callback.Data, prefixAnswer)
	if !ok {
		return "", fmt.Errorf("malformed answer callback %q", callback.Data)
	}
	option, err := strconv.Atoi(value)
	if err != nil {
		return "", fmt.Errorf("malformed answer callback %q: %w", callback.Data, err)
	}

	chatID := callback.Message.Chat.ID
	out, err := b.sessions.answer(callback.From.ID, questionID, option)
	switch {
	case errors.Is(err, errNoQuiz):
		return "This quiz is over. Send /quiz to start a new one", nil
	case errors.Is(err, errStaleQuestion):
		return "Already answered", nil
	case err != nil:
		return "", err
	}

	b.clearKeyboard(chatID, callback.Message.MessageID)

	toast := "✅ Correct!"
	if !out.correct {
		toast = "❌ Wrong"
		if err := b.replyHTML(chatID, fmt.Sprintf("❌ <b>%s</b> is <b>%s</b>",
			html.EscapeString(out.question.Prompt), html.EscapeString(out.question.CorrectAnswer)), nil); err != nil {
			return "", err
		}
	}

	if out.next != nil {
		return toast, b.sendQuestion(chatID, *out.next, out.index, len(out.session.quiz.Questions))
	}

	outcome, err := b.deps.Learner.SubmitQuiz(ctx, out.session.quiz, out.session.answers)
	if err != nil {
		return "", fmt.Errorf("failed to submit quiz: %w", err)
	}

	text := fmt.Sprintf("🏁 Quiz finished: %d/%d correct. +%d XP",
		outcome.Result.CorrectAnswers, outcome.Result.TotalQuestions, outcome.XPGained)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔁 Another quiz", prefixQuiz+string(out.session.quiz.Kind)),
	))
	return toast, b.replyHTML(chatID, text, keyboard)
}

// clearKeyboard removes the buttons from an answered message
func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		b.log.Debug("failed to clear keyboard", zap.Error(err))
	}
}

func formatDays(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.send(tgbotapi.NewMessage(chatID, text))
}
