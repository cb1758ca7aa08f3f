package repository

import (
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

const accountColumns = `id, account_number, balance, currency_code, owner_id, version, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_number, balance, currency_code, owner_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRow(
		query,
		account.AccountNumber,
		account.Balance.StringFixed(domain.MoneyScale),
		account.Currency,
		account.OwnerID,
		account.Version,
		now,
	).Scan(&account.ID)

	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				r.logger.Warn("Duplicate account number", "account_number", account.AccountNumber)
				return errors.ErrDuplicateAccount
			case "23503": // foreign_key_violation
				r.logger.Warn("Account owner does not exist", "owner_id", account.OwnerID)
				return errors.ErrOwnerNotFound
			}
		}
		r.logger.Error("Failed to create account", "account_number", account.AccountNumber, "error", err)
		return errors.Internal("failed to create account", err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID, "account_number", account.AccountNumber)
	return nil
}

func (r *accountRepository) GetAccount(id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return r.scanAccount(r.db.QueryRow(query, id), "account_id", id)
}

func (r *accountRepository) GetAccountByNumber(number string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	return r.scanAccount(r.db.QueryRow(query, number), "account_number", number)
}

func (r *accountRepository) ListAccountsByOwner(ownerID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID, "error", err)
		return nil, errors.Internal("failed to list accounts", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := r.scanAccount(rows, "owner_id", ownerID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("failed to list accounts", err)
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *accountRepository) scanAccount(row rowScanner, key string, value interface{}) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&balanceStr,
		&account.Currency,
		&account.OwnerID,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Warn("Account not found", key, value)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", key, value, "error", err)
		return nil, errors.Internal("failed to get account", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", key, value, "balance_str", balanceStr, "error", err)
		return nil, errors.Internal("failed to parse balance", err)
	}

	account.Balance = balance
	return &account, nil
}

// UpdateAccount writes balance only if the stored version still matches.
func (r *accountRepository) UpdateAccount(account *domain.Account) error {
	if account.Balance.IsNegative() {
		return errors.Internal("refusing to persist negative balance", domain.ErrInsufficientFunds)
	}

	query := `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`

	now := time.Now().UTC()
	result, err := r.db.Exec(query, account.Balance.StringFixed(domain.MoneyScale), now, account.ID, account.Version)
	if err != nil {
		r.logger.Error("Failed to update account", "account_id", account.ID, "error", err)
		return errors.Internal("failed to update account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, account.ID).Scan(&exists); err != nil {
			return errors.Internal("failed to check account existence", err)
		}
		if !exists {
			r.logger.Warn("No account found to update", "account_id", account.ID)
			return errors.ErrAccountNotFound
		}
		r.logger.Warn("Stale account version", "account_id", account.ID, "version", account.Version)
		return errors.ErrVersionConflict
	}

	account.Version++
	account.UpdatedAt = now
	r.logger.Info("Account updated", "account_id", account.ID, "new_balance", account.Balance, "version", account.Version)
	return nil
}

func (r *accountRepository) DeleteAccount(id int64) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.Internal("failed to delete account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}
