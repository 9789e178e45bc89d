package database

import (
	"context"
	"fmt"

	"github.com/example/lumi/pkg/models"
)

// QuizResultRepository handles database operations for quiz results
type QuizResultRepository struct {
	db QueryI
}

// NewQuizResultRepository creates a new repository instance
func NewQuizResultRepository(db QueryI) *QuizResultRepository {
	return &QuizResultRepository{db: db}
}

// SaveQuizResult inserts a quiz result and sets its ID
func (r *QuizResultRepository) SaveQuizResult(ctx context.Context, result *models.QuizResult) error {
	query := r.db.Rebind(`
		INSERT INTO quiz_results (user_id, quiz_kind, total_questions, correct_answers, taken_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := r.db.GetContext(ctx, &result.ID, query,
		result.UserID,
		result.QuizKind,
		result.TotalQuestions,
		result.CorrectAnswers,
		result.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	return nil
}

// ListQuizResults returns the user's quiz results, newest first
func (r *QuizResultRepository) ListQuizResults(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error) {
	query := `SELECT id, user_id, quiz_kind, total_questions, correct_answers, taken_at
		FROM quiz_results WHERE user_id = ? ORDER BY taken_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	results := []models.QuizResult{}
	if err := r.db.SelectContext(ctx, &results, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get quiz results: %w", err)
	}
	return results, nil
}
