package learning

import (
	"context"
	"fmt"
	"slices"

	"github.com/example/lumi/internal/quiz"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/pkg/models"
	"go.uber.org/zap"
)

// BuildQuiz creates a multiple-choice quiz from the user's translations or review items
func (s *Service) BuildQuiz(ctx context.Context, userID int64, kind models.QuizKind) (models.Quiz, error) {
	switch kind {
	case models.QuizFromTranslations:
		translations, err := s.store.ListTranslations(ctx, userID, 0)
		if err != nil {
			return models.Quiz{}, err
		}
		return s.quizzes.FromTranslations(userID, translations, s.now())
	case models.QuizFromReviewItems:
		items, err := s.store.ListItems(ctx, userID)
		if err != nil {
			return models.Quiz{}, err
		}
		return s.quizzes.FromItems(userID, items, s.now())
	default:
		return models.Quiz{}, fmt.Errorf("unknown quiz kind %q", kind)
	}
}

// QuizOutcome is the graded result of a finished quiz
type QuizOutcome struct {
	Result   models.QuizResult
	XPGained int
	Progress models.UserProgress
}

// SubmitQuiz grades answers (question ID -> option index) and records the result
func (s *Service) SubmitQuiz(ctx context.Context, q models.Quiz, answers map[string]int) (QuizOutcome, error) {
	correct := quiz.Score(q, answers)

	result := models.QuizResult{
		UserID:         q.UserID,
		QuizKind:       q.Kind,
		TotalQuestions: len(q.Questions),
		CorrectAnswers: correct,
		TakenAt:        s.now(),
	}
	if err := s.store.SaveQuizResult(ctx, &result); err != nil {
		return QuizOutcome{}, err
	}

	xp := correct * xpPerQuizAnswer
	progress, err := s.updateProgress(ctx, q.UserID, func(p *models.UserProgress) {
		p.XP += xp
	})
	if err != nil {
		return QuizOutcome{}, err
	}

	s.log.Info("quiz finished",
		zap.Int64("user_id", q.UserID),
		zap.String("quiz_id", q.ID),
		zap.Int("correct", correct),
		zap.Int("total", result.TotalQuestions),
	)

	return QuizOutcome{Result: result, XPGained: xp, Progress: progress}, nil
}

// QuizHistory returns the user's most recent quiz results
func (s *Service) QuizHistory(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error) {
	return s.store.ListQuizResults(ctx, userID, limit)
}

// Reminder is a user with reviews waiting
type Reminder struct {
	User models.User
	Due  []models.ReviewableItem
}

// Reminders collects users subscribed at hour who have due items. Each
// reminder holds at most the user's session size of items.
func (s *Service) Reminders(ctx context.Context, hour int) ([]Reminder, error) {
	users, err := s.store.ListUsersForNotification(ctx, hour)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var reminders []Reminder
	for _, u := range users {
		items, err := s.store.ListItems(ctx, u.ID)
		if err != nil {
			s.log.Error("failed to list items for reminder", zap.Int64("user_id", u.ID), zap.Error(err))
			continue
		}

		limit := u.ItemsPerSession
		if limit <= 0 {
			limit = s.cfg.DefaultSessionSize
		}
		due := slices.Collect(sr.SelectDue(items, now, limit))
		if len(due) == 0 {
			continue
		}
		reminders = append(reminders, Reminder{User: u, Due: due})
	}
	return reminders, nil
}

// ReminderFor builds the reminder for one user regardless of their
// notification settings. ok is false when nothing is due.
func (s *Service) ReminderFor(ctx context.Context, userID int64) (r Reminder, ok bool, err error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Reminder{}, false, err
	}

	limit := u.ItemsPerSession
	if limit <= 0 {
		limit = s.cfg.DefaultSessionSize
	}
	due, err := s.DueItems(ctx, userID, limit)
	if err != nil {
		return Reminder{}, false, err
	}
	if len(due) == 0 {
		return Reminder{}, false, nil
	}
	return Reminder{User: u, Due: due}, true, nil
}
