package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/lumi/internal/storage"
	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=repository.go -destination=mock/query_mock.go -package=mock_database

// QueryI is the subset of *sqlx.DB the repositories use
type QueryI interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// Store implements storage.Store on top of a SQL database
type Store struct {
	db *sqlx.DB
	*ItemRepository
	*TranslationRepository
	*UserRepository
	*UserProgressRepository
	*QuizResultRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore wraps an open database. Close closes it.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:                     db,
		ItemRepository:         NewItemRepository(db),
		TranslationRepository:  NewTranslationRepository(db),
		UserRepository:         NewUserRepository(db),
		UserProgressRepository: NewUserProgressRepository(db),
		QuizResultRepository:   NewQuizResultRepository(db),
	}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// notFound maps sql.ErrNoRows onto storage.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
