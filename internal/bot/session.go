package bot

import (
	"errors"
	"sync"

	"github.com/example/lumi/pkg/models"
)

var (
	errNoQuiz        = errors.New("no quiz in progress")
	errStaleQuestion = errors.New("question was already answered")
)

// quizSession is a quiz being answered one question at a time
type quizSession struct {
	quiz    models.Quiz
	current int
	answers map[string]int
	correct int
}

func (s *quizSession) done() bool {
	return s.current >= len(s.quiz.Questions)
}

// quizSessions keeps at most one running quiz per user
type quizSessions struct {
	mu     sync.Mutex
	byUser map[int64]*quizSession
}

func newQuizSessions() *quizSessions {
	return &quizSessions{byUser: make(map[int64]*quizSession)}
}

// start replaces any quiz the user was taking
func (s *quizSessions) start(q models.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[q.UserID] = &quizSession{quiz: q, answers: make(map[string]int, len(q.Questions))}
}

// answerOutcome is what answering the current question produced
type answerOutcome struct {
	question models.QuizQuestion
	correct  bool
	// next is nil when the quiz is complete
	next    *models.QuizQuestion
	index   int
	session quizSession
}

// answer records option for questionID. Only the current question of the
// user's quiz can be answered; a finished quiz is removed.
func (s *quizSessions) answer(userID int64, questionID string, option int) (answerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byUser[userID]
	if !ok || sess.done() {
		return answerOutcome{}, errNoQuiz
	}

	q := sess.quiz.Questions[sess.current]
	if q.ID != questionID {
		return answerOutcome{}, errStaleQuestion
	}

	sess.answers[q.ID] = option
	out := answerOutcome{question: q, correct: option == q.CorrectIndex}
	if out.correct {
		sess.correct++
	}
	sess.current++

	if sess.done() {
		delete(s.byUser, userID)
	} else {
		next := sess.quiz.Questions[sess.current]
		out.next = &next
		out.index = sess.current
	}
	out.session = *sess
	return out, nil
}

func (s *quizSessions) active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byUser[userID]
	return ok
}
