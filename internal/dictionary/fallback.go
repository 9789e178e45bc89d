package dictionary

func simple(word, phonetic, pos, definition, example string, synonyms, antonyms []string) Entry {
	return Entry{
		Word:     word,
		Phonetic: phonetic,
		Meanings: []Meaning{{
			PartOfSpeech: pos,
			Definitions: []Definition{{
				Definition: definition,
				Example:    example,
				Synonyms:   synonyms,
				Antonyms:   antonyms,
			}},
			Synonyms: synonyms,
			Antonyms: antonyms,
		}},
	}
}

var fallback = map[string]Entry{
	"hello": simple("hello", "/həˈloʊ/", "exclamation",
		"Used as a greeting or to begin a phone conversation.", "Hello there, how are you?",
		[]string{"hi", "greetings", "howdy", "hey"}, []string{"goodbye", "bye"}),
	"world": simple("world", "/wɜrld/", "noun",
		"The earth, together with all of its countries and peoples.", "He traveled around the world.",
		[]string{"earth", "globe", "planet"}, nil),
	"language": simple("language", "/ˈlæŋɡwɪdʒ/", "noun",
		"The method of human communication, either spoken or written, consisting of the use of words in a structured and conventional way.",
		"English is a global language.",
		[]string{"speech", "tongue", "dialect", "idiom"}, []string{"silence"}),
	"translate": simple("translate", "/trænsˈleɪt/", "verb",
		"Express the sense of (words or text) in another language.", "The book was translated into English.",
		[]string{"interpret", "render", "convert", "transcribe"}, nil),
	"dictionary": simple("dictionary", "/ˈdɪkʃəˌnɛri/", "noun",
		"A book or electronic resource that lists the words of a language and gives their meaning.",
		"I looked up the word in the dictionary.",
		[]string{"lexicon", "wordbook", "glossary", "thesaurus"}, nil),
	"grammar": simple("grammar", "/ˈɡræmər/", "noun",
		"The whole system and structure of a language, usually taken as consisting of syntax and morphology.",
		"The rules of English grammar.",
		[]string{"syntax", "usage", "structure"}, nil),
	"summarize": simple("summarize", "/ˈsʌməˌraɪz/", "verb",
		"Give a brief statement of the main points of (something).", "Can you summarize the main points of the article?",
		[]string{"recap", "outline", "review", "sum up"}, []string{"elaborate", "expand"}),
	"internet": simple("internet", "/ˈɪntərnet/", "noun",
		"A global computer network providing a variety of information and communication facilities.",
		"I found the information on the internet.",
		[]string{"web", "net", "cyberspace", "online"}, nil),
	"software": simple("software", "/ˈsɔftwer/", "noun",
		"The programs and other operating information used by a computer.", "The new software update is available.",
		[]string{"program", "application", "code", "system"}, []string{"hardware"}),
	"hardware": simple("hardware", "/ˈhɑːrdwer/", "noun",
		"The physical components of a computer system.", "The hardware needs to be upgraded.",
		[]string{"equipment", "devices", "components", "machinery"}, []string{"software"}),
	"database": simple("database", "/ˈdeɪtəbeɪs/", "noun",
		"A structured set of data held in a computer, especially one that is accessible in various ways.",
		"The information is stored in the database.",
		[]string{"databank", "repository", "archive", "store"}, nil),
	"algorithm": simple("algorithm", "/ˈælɡərɪðəm/", "noun",
		"A process or set of rules to be followed in calculations or other problem-solving operations.",
		"The algorithm efficiently sorts the data.",
		[]string{"procedure", "method", "process", "technique"}, nil),
}
