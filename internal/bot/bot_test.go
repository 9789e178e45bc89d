package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mock_bot "github.com/example/lumi/internal/bot/mock"
	"github.com/example/lumi/internal/dictionary"
	"github.com/example/lumi/internal/excel"
	"github.com/example/lumi/internal/kvstore"
	"github.com/example/lumi/internal/learning"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUserID = 42

type fakeTranslator struct {
	words map[string]string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if w, ok := f.words[text]; ok {
		return w, nil
	}
	return strings.ToUpper(text), nil
}

func (f *fakeTranslator) Chat(_ context.Context, message, language string) (string, error) {
	return "[" + language + "] " + message, nil
}

type fakeDictionary struct{}

func (fakeDictionary) Lookup(_ context.Context, word, _ string) (dictionary.Entry, error) {
	if word != "serendipity" {
		return dictionary.Entry{}, dictionary.ErrWordNotFound
	}
	return dictionary.Entry{
		Word:     "serendipity",
		Phonetic: "/ˌsɛɹənˈdɪpɪti/",
		Meanings: []dictionary.Meaning{{
			PartOfSpeech: "noun",
			Definitions:  []dictionary.Definition{{Definition: "A pleasant surprise.", Example: "Finding it was pure serendipity."}},
		}},
	}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	bot        *Bot
	api        *mock_bot.MockBot
	svc        *learning.Service
	clock      *testClock
	translator *fakeTranslator
}

func newTestBot(t *testing.T) *testEnv {
	t.Helper()

	scheduler, err := sr.New(sr.DefaultConfig())
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	svc := learning.NewService(kvstore.NewStore(kvstore.NewMemory(0)), scheduler, learning.DefaultConfig(), zap.NewNop(),
		learning.WithClock(clock.Now),
		learning.WithRand(learning.NewRand(1)),
	)

	translator := &fakeTranslator{words: map[string]string{"cat": "gato", "dog": "perro", "house": "casa"}}
	api := &mock_bot.MockBot{}
	b := NewWithSender(api, Config{}, Deps{
		Learner:    svc,
		Translator: translator,
		Dictionary: fakeDictionary{},
		Importer:   excel.NewImporter(svc, zap.NewNop()),
	}, zap.NewNop())

	return &testEnv{bot: b, api: api, svc: svc, clock: clock, translator: translator}
}

func command(text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
		From:     &tgbotapi.User{ID: testUserID, FirstName: "Ana", UserName: "ana"},
		Chat:     &tgbotapi.Chat{ID: testUserID},
	}
}

func text(s string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: s,
		From: &tgbotapi.User{ID: testUserID, FirstName: "Ana"},
		Chat: &tgbotapi.Chat{ID: testUserID},
	}
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: testUserID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Chat:      &tgbotapi.Chat{ID: testUserID},
		},
	}
}

func keyboard(t *testing.T, msg tgbotapi.MessageConfig) tgbotapi.InlineKeyboardMarkup {
	t.Helper()

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "message has no inline keyboard: %q", msg.Text)
	return markup
}

func (e *testEnv) translate(t *testing.T, words ...string) {
	t.Helper()
	for _, w := range words {
		require.NoError(t, e.bot.HandleMessage(context.Background(), text(w)))
	}
}

func TestHandleCommand_Start(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.NoError(t, env.bot.HandleCommand(context.Background(), command("/start")))

	u, err := env.svc.User(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)

	last := env.api.Last()
	assert.Equal(t, int64(testUserID), last.ChatID)
	assert.Contains(t, last.Text, "Hi, Ana")
	assert.Contains(t, last.Text, "from English to Spanish")
	assert.Equal(t, tgbotapi.ModeHTML, last.ParseMode)
}

func TestHandleCommand_Unknown(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.NoError(t, env.bot.HandleCommand(context.Background(), command("/dance")))
	assert.Contains(t, env.api.Last().Text, "Unknown command")
}

func TestHandleMessage_TranslatesAndPromotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestBot(t)

	env.translate(t, "cat")
	first := env.api.Last().Text
	assert.Contains(t, first, "gato")
	assert.NotContains(t, first, "flashcard")

	env.translate(t, "cat")
	assert.Contains(t, env.api.Last().Text, "flashcard")

	stats, err := env.svc.Stats(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Flashcards)

	p, err := env.svc.Progress(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalTranslations)
	assert.Equal(t, 1, p.UniqueWords)
}

func TestHandleMessage_EscapesHTML(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	env.translate(t, "<b>x</b>")
	assert.Contains(t, env.api.Last().Text, "&lt;b&gt;x&lt;/b&gt;")
}

func TestReviewFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestBot(t)

	require.NoError(t, env.bot.HandleCommand(ctx, command("/start")))
	require.NoError(t, env.bot.HandleCommand(ctx, command("/review")))
	assert.Contains(t, env.api.Last().Text, "Nothing to review")

	// the promoted card can be reviewed straight away
	env.translate(t, "cat", "cat")
	require.NoError(t, env.bot.HandleCommand(ctx, command("/review")))

	card := env.api.Last()
	assert.Contains(t, card.Text, "<b>cat</b>")
	assert.Contains(t, card.Text, "<tg-spoiler>gato</tg-spoiler>")

	buttons := keyboard(t, card).InlineKeyboard
	require.Len(t, buttons, 1)
	require.Len(t, buttons[0], 3)
	easy := *buttons[0][0].CallbackData
	assert.True(t, strings.HasPrefix(easy, prefixRate))
	assert.True(t, strings.HasSuffix(easy, ":easy"))

	mock_bot.ClearSentMessages(env.api)
	require.NoError(t, env.bot.HandleCallback(ctx, callback(easy)))

	msgs := env.api.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "Next review in")
	assert.Contains(t, msgs[0].Text, "+10 XP")
	assert.Contains(t, msgs[1].Text, "Nothing to review")

	// keyboard cleared and callback answered
	require.Len(t, env.api.Requests, 2)
	answered, ok := env.api.Requests[1].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "easy", answered.Text)

	p, err := env.svc.Progress(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewsDone)
	assert.Equal(t, 10, p.XP)

	env.clock.Advance(3 * 24 * time.Hour)
	require.NoError(t, env.bot.HandleCommand(ctx, command("/review")))
	assert.Contains(t, env.api.Last().Text, "<b>cat</b>", "the card returns once its interval has passed")
}

func TestRateCallback_UnknownItem(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.NoError(t, env.bot.HandleCommand(context.Background(), command("/start")))
	require.NoError(t, env.bot.HandleCallback(context.Background(), callback("rate:missing:hard")))

	answered, ok := env.api.Requests[len(env.api.Requests)-1].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "This card no longer exists", answered.Text)
}

func TestRateCallback_Malformed(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.Error(t, env.bot.HandleCallback(context.Background(), callback("rate:abc")))
	require.Error(t, env.bot.HandleCallback(context.Background(), callback("rate:abc:sometimes")))
}

func TestQuizFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestBot(t)

	env.translate(t, "cat", "dog", "house")
	mock_bot.ClearSentMessages(env.api)

	require.NoError(t, env.bot.HandleCommand(ctx, command("/quiz")))
	require.True(t, env.bot.sessions.active(testUserID))

	env.bot.sessions.mu.Lock()
	q := env.bot.sessions.byUser[testUserID].quiz
	env.bot.sessions.mu.Unlock()
	require.Len(t, q.Questions, 3)

	first := env.api.Last()
	assert.Contains(t, first.Text, "Question 1/3")
	assert.Len(t, keyboard(t, first).InlineKeyboard, len(q.Questions[0].Options))

	for i, question := range q.Questions {
		option := question.CorrectIndex
		if i == 0 {
			option = (option + 1) % len(question.Options)
		}
		data := prefixAnswer + question.ID + ":" + string(rune('0'+option))
		require.NoError(t, env.bot.HandleCallback(ctx, callback(data)))
	}

	last := env.api.Last()
	assert.Contains(t, last.Text, "2/3 correct")
	assert.Contains(t, last.Text, "+10 XP")
	assert.Equal(t, prefixQuiz+string(models.QuizFromTranslations), *keyboard(t, last).InlineKeyboard[0][0].CallbackData)
	assert.False(t, env.bot.sessions.active(testUserID))

	history, err := env.svc.QuizHistory(ctx, testUserID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].CorrectAnswers)
}

func TestQuiz_NoMaterial(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.NoError(t, env.bot.HandleCommand(context.Background(), command("/quiz cards")))
	assert.Contains(t, env.api.Last().Text, "Not enough words")
}

func TestAnswerCallback_NoQuiz(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	require.NoError(t, env.bot.HandleCallback(context.Background(), callback("answer:q1:0")))

	answered, ok := env.api.Requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, answered.Text, "quiz is over")
}

func TestSettingsCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    string
		check   func(t *testing.T, u models.User)
	}{
		{command: "/notify", want: "Reminders are enabled at 09:00"},
		{command: "/notify off", want: "Reminders disabled", check: func(t *testing.T, u models.User) {
			assert.False(t, u.NotificationEnabled)
		}},
		{command: "/notify maybe", want: "on or off"},
		{command: "/time 7", want: "07:00", check: func(t *testing.T, u models.User) {
			assert.Equal(t, 7, u.NotificationHour)
		}},
		{command: "/time 25", want: "valid hour"},
		{command: "/time soon", want: "valid hour"},
		{command: "/lang EN de", want: "from English to German", check: func(t *testing.T, u models.User) {
			assert.Equal(t, "en", u.SourceLang)
			assert.Equal(t, "de", u.TargetLang)
		}},
		{command: "/lang x", want: "Usage: /lang"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			t.Parallel()

			env := newTestBot(t)
			require.NoError(t, env.bot.HandleCommand(context.Background(), command(tt.command)))
			assert.Contains(t, env.api.Last().Text, tt.want)

			if tt.check != nil {
				u, err := env.svc.User(context.Background(), testUserID)
				require.NoError(t, err)
				tt.check(t, u)
			}
		})
	}
}

func TestInfoCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestBot(t)
	env.translate(t, "cat", "cat", "dog")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/stats")))
	assert.Contains(t, env.api.Last().Text, "Flashcards: 1")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/progress")))
	assert.Contains(t, env.api.Last().Text, "Translations: 3 (2 unique)")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/history")))
	history := env.api.Last().Text
	assert.Contains(t, history, "cat → gato (×2)")
	assert.Contains(t, history, "dog → perro")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/due")))
	due := env.api.Last()
	assert.Contains(t, due.Text, "1 due for review")
	assert.Equal(t, callbackReview, *keyboard(t, due).InlineKeyboard[0][0].CallbackData)
}

func TestDefineAndChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestBot(t)

	require.NoError(t, env.bot.HandleCommand(ctx, command("/define serendipity")))
	def := env.api.Last().Text
	assert.Contains(t, def, "<b>serendipity</b>")
	assert.Contains(t, def, "<i>noun</i>")
	assert.Contains(t, def, "1. A pleasant surprise.")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/define qwzx")))
	assert.Contains(t, env.api.Last().Text, "No definition found")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/define")))
	assert.Contains(t, env.api.Last().Text, "Usage: /define")

	require.NoError(t, env.bot.HandleCommand(ctx, command("/chat how are you")))
	assert.Equal(t, "[es] how are you", env.api.Last().Text)
}

func TestHandleDocument(t *testing.T) {
	t.Parallel()

	csv := "word,translation,category\ncat,gato,animals\ndog,perro,animals\ncat,gato,animals\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file-1", r.URL.Path)
		_, _ = w.Write([]byte(csv))
	}))
	t.Cleanup(server.Close)

	env := newTestBot(t)
	env.api.FileURL = server.URL

	msg := text("")
	msg.Document = &tgbotapi.Document{FileID: "file-1", FileName: "words.csv", FileSize: len(csv)}
	require.NoError(t, env.bot.HandleMessage(context.Background(), msg))

	result := env.api.Last().Text
	assert.Contains(t, result, "Added: 2")
	assert.Contains(t, result, "Skipped: 1")

	stats, err := env.svc.Stats(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VocabularyWords)
}

func TestHandleDocument_Rejected(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)

	big := text("")
	big.Document = &tgbotapi.Document{FileID: "f", FileName: "huge.xlsx", FileSize: 10 << 20}
	require.NoError(t, env.bot.HandleMessage(context.Background(), big))
	assert.Contains(t, env.api.Last().Text, "too large")
}

func TestSendReminder(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	err := env.bot.SendReminder(context.Background(), learning.Reminder{
		User: models.User{ID: 99},
		Due:  make([]models.ReviewableItem, 3),
	})
	require.NoError(t, err)

	msg := env.api.Last()
	assert.Equal(t, int64(99), msg.ChatID)
	assert.Contains(t, msg.Text, "3 items waiting")
	assert.Equal(t, callbackReview, *keyboard(t, msg).InlineKeyboard[0][0].CallbackData)

	env.api.SendErr = errors.New("Forbidden: bot was blocked by the user")
	require.Error(t, env.bot.SendReminder(context.Background(), learning.Reminder{User: models.User{ID: 99}}))
}

func TestHandleUpdate_ReportsFailures(t *testing.T) {
	t.Parallel()

	env := newTestBot(t)
	env.translator.err = errors.New("unexpected provider payload")

	env.bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1, Message: text("cat")})
	assert.Contains(t, env.api.Last().Text, "Something went wrong")
}

func TestParseCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data      string
		id, value string
		ok        bool
	}{
		{data: "rate:abc-123:easy", id: "abc-123", value: "easy", ok: true},
		{data: "answer:q:3", id: "q", value: "3", ok: true},
		{data: "rate:abc"},
		{data: "rate::easy"},
		{data: "rate:abc:"},
	}
	for _, tt := range tests {
		prefix := prefixRate
		if strings.HasPrefix(tt.data, prefixAnswer) {
			prefix = prefixAnswer
		}
		id, value, ok := parseCallback(tt.data, prefix)
		assert.Equal(t, tt.ok, ok, tt.data)
		assert.Equal(t, tt.id, id, tt.data)
		assert.Equal(t, tt.value, value, tt.data)
	}
}
