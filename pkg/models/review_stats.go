package models

// ReviewStats summarizes a user's review items at a point in time
type ReviewStats struct {
	Total           int     `json:"total"`
	Due             int     `json:"due"`
	New             int     `json:"new"`
	Mastered        int     `json:"mastered"`
	Flashcards      int     `json:"flashcards"`
	VocabularyWords int     `json:"vocabulary_words"`
	AverageStrength float64 `json:"average_strength"`
}
