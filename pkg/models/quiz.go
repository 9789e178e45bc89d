package models

import "time"

// QuizKind names the source a quiz was built from
type QuizKind string

const (
	QuizFromTranslations QuizKind = "translations"
	QuizFromReviewItems  QuizKind = "review_items"
)

// QuizQuestion is a single multiple-choice question
type QuizQuestion struct {
	ID            string   `json:"id"`
	SourceID      string   `json:"source_id"` // translation or item the question was built from
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correct_index"`
}

// Quiz is an ordered set of questions for one user
type Quiz struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Kind      QuizKind       `json:"kind"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuizResult tracks the outcome of a finished quiz
type QuizResult struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	QuizKind       QuizKind  `json:"quiz_kind" db:"quiz_kind"`
	TotalQuestions int       `json:"total_questions" db:"total_questions"`
	CorrectAnswers int       `json:"correct_answers" db:"correct_answers"`
	TakenAt        time.Time `json:"taken_at" db:"taken_at"`
}
