package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

const transactionColumns = `id, amount, title, status, failure_reason, source_account_id, target_account_id, created_at`

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	if tx.IsPending() {
		return errors.Internal("failed to create transaction", domain.ErrTransactionPending)
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// Handle optional failure reason
	var failureReason interface{}
	if tx.FailureReason != nil {
		failureReason = *tx.FailureReason
	}

	_, err := r.db.Exec(
		query,
		tx.ID,
		tx.Amount.StringFixed(domain.MoneyScale),
		tx.Title,
		string(tx.Status),
		failureReason,
		tx.SourceAccountID,
		tx.TargetAccountID,
		tx.Timestamp,
	)

	if err != nil {
		r.logger.Error("Failed to create transaction",
			"source_account_id", tx.SourceAccountID,
			"target_account_id", tx.TargetAccountID,
			"amount", tx.Amount,
			"error", err)
		return errors.Internal("failed to create transaction", err)
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID, "status", tx.Status)
	return nil
}

func (r *transactionRepository) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction, err := scanTransaction(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.Internal("failed to get transaction", err)
	}
	return transaction, nil
}

func (r *transactionRepository) ListIncoming(accountID int64) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE target_account_id = $1 ORDER BY created_at DESC, id`

	return r.list(query, accountID)
}

func (r *transactionRepository) ListOutgoing(accountID int64) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE source_account_id = $1 ORDER BY created_at DESC, id`

	return r.list(query, accountID)
}

func (r *transactionRepository) ListByAccount(accountID int64, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE source_account_id = $1 OR target_account_id = $1`,
		accountID,
	).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID, "error", err)
		return nil, 0, errors.Internal("failed to count transactions", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE source_account_id = $1 OR target_account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	items, err := r.list(query, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *transactionRepository) list(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "args", args, "error", err)
		return nil, errors.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, errors.Internal("failed to scan transaction", err)
		}
		transactions = append(transactions, *transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list transactions", err)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var amountStr, status string
	var failureReason sql.NullString

	err := row.Scan(
		&transaction.ID,
		&amountStr,
		&transaction.Title,
		&status,
		&failureReason,
		&transaction.SourceAccountID,
		&transaction.TargetAccountID,
		&transaction.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	transaction.Amount = amount
	transaction.Status = domain.TransactionStatus(status)

	if failureReason.Valid {
		reason := failureReason.String
		transaction.FailureReason = &reason
	}

	return &transaction, nil
}
