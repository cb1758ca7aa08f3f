package repository

import (
	"database/sql"
	"log/slog"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

// SQLExecutor represents both sql.DB and sql.Tx
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var (
	_ SQLExecutor  = (*sql.DB)(nil)
	_ SQLExecutor  = (*sql.Tx)(nil)
	_ domain.Store = (*Store)(nil)
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

func (s *Store) ExchangeRate() domain.ExchangeRateRepository {
	return NewExchangeRateRepository(s.executor, s.logger)
}

func (s *Store) Owner() domain.OwnerRepository {
	return NewOwnerRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a database transaction. Nested calls
// reuse the enclosing transaction.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	if _, inTx := s.executor.(*sql.Tx); inTx {
		return fn(s)
	}

	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.Internal("cannot begin transaction", nil)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Internal("failed to begin transaction", err)
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal("failed to commit transaction", err)
	}
	return nil
}
