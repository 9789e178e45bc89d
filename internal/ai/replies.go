package ai

import (
	"slices"
	"strings"
	"unicode"
)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
}

// LanguageName turns an ISO code into an English language name. Unknown
// values are returned as given.
func LanguageName(lang string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return name
	}
	if lang == "" {
		return "English"
	}
	return lang
}

// canned replies are checked in order; the first matching keyword wins
var cannedReplies = []struct {
	keywords  []string
	wholeWord bool
	reply     string
}{
	{
		keywords:  []string{"hello", "hi", "hey"},
		wholeWord: true,
		reply:     "Hello! I'm your language assistant. Ask me about meanings, grammar or learning tips.",
	},
	{
		keywords: []string{"translate"},
		reply:    "Send me any text and I'll translate it with your current language pair. Use /lang to change it.",
	},
	{
		keywords: []string{"meaning", "define"},
		reply:    "I can help explain meanings! Try /define followed by the word you'd like to understand better.",
	},
	{
		keywords: []string{"grammar"},
		reply:    "Grammar questions are welcome. Tell me the sentence you're unsure about and what confuses you.",
	},
	{
		keywords: []string{"learn", "study"},
		reply: "Here are some tips for effective language learning:\n" +
			"1. Practice regularly\n2. Use flashcards (/review)\n3. Take quizzes (/quiz)\n" +
			"4. Listen to native speakers\n5. Read in your target language",
	},
	{
		keywords: []string{"help"},
		reply: "I can help you with:\n- Understanding word meanings\n- Language learning tips\n" +
			"- Grammar explanations\n- Cultural context\nJust ask me anything!",
	},
}

const defaultReply = "I'm here to help with your language learning journey! " +
	"You can ask me about meanings, grammar, learning tips, or anything else language-related."

// CannedReply answers a chat message without calling the API
func CannedReply(message string) string {
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, c := range cannedReplies {
		for _, kw := range c.keywords {
			if c.wholeWord && slices.Contains(words, kw) || !c.wholeWord && strings.Contains(lower, kw) {
				return c.reply
			}
		}
	}
	return defaultReply
}
