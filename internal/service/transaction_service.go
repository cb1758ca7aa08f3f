package service

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
	"minibank/internal/observability"
)

// Converter turns an amount in pair.Base into pair.Counter.
type Converter interface {
	Convert(amount decimal.Decimal, pair domain.CurrencyPair) (decimal.Decimal, error)
}

// TransactionService moves money between accounts. Business-rule failures
// (insufficient funds, transfer to self) are not returned as errors: they are
// persisted and returned as FAILED transactions. Errors are reserved for
// validation, missing accounts, provider failures, version conflicts and
// storage faults. Each call makes exactly one attempt.
type TransactionService struct {
	store     domain.Store
	converter Converter
	logger    *slog.Logger
}

func NewTransactionService(store domain.Store, converter Converter, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		converter: converter,
		logger:    logger,
	}
}

type TransferRequest struct {
	SourceAccountNumber string
	TargetAccountNumber string
	Amount              decimal.Decimal
	Title               string
}

const (
	kindTransfer = "transfer"
	kindDeposit  = "deposit"
	kindWithdraw = "withdraw"
)

func (s *TransactionService) Transfer(req *TransferRequest) (*domain.Transaction, error) {
	start := time.Now()
	defer observeLatency(kindTransfer, start)

	s.logger.Info("Processing transfer",
		"source_account", req.SourceAccountNumber,
		"target_account", req.TargetAccountNumber,
		"amount", req.Amount)

	if err := validateAmount(req.Amount); err != nil {
		return nil, s.reject(kindTransfer, err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, s.reject(kindTransfer, errors.ErrInvalidTitle)
	}

	source, err := s.store.Account().GetAccountByNumber(req.SourceAccountNumber)
	if err != nil {
		return nil, s.reject(kindTransfer, err)
	}
	target, err := s.store.Account().GetAccountByNumber(req.TargetAccountNumber)
	if err != nil {
		return nil, s.reject(kindTransfer, err)
	}

	transaction := domain.NewTransaction(source.ID, target.ID, req.Amount, req.Title)

	if source.ID == target.ID {
		return s.saveFailed(kindTransfer, transaction, domain.ReasonSameAccount)
	}
	if !source.HasFunds(req.Amount) {
		return s.saveFailed(kindTransfer, transaction, domain.ReasonInsufficientFunds)
	}

	credit := req.Amount
	if source.Currency != target.Currency {
		credit, err = s.converter.Convert(req.Amount, domain.NewCurrencyPair(source.Currency, target.Currency))
		if err != nil {
			return nil, s.reject(kindTransfer, err)
		}
		if err := transaction.AnnotateFX(req.Amount, source.Currency, credit, target.Currency); err != nil {
			return nil, s.reject(kindTransfer, errors.Internal("failed to annotate transaction", err))
		}
	}

	err = s.store.WithTransaction(func(store domain.Store) error {
		if err := source.Debit(req.Amount); err != nil {
			return errors.Internal("debit rejected after funds check", err)
		}
		target.Credit(credit)

		if err := store.Account().UpdateAccount(source); err != nil {
			return err
		}
		if err := store.Account().UpdateAccount(target); err != nil {
			return err
		}
		if err := transaction.Succeed(); err != nil {
			return errors.Internal("failed to resolve transaction", err)
		}
		return store.Transaction().CreateTransaction(transaction)
	})
	if err != nil {
		s.logger.Error("Transfer failed", "transaction_id", transaction.ID, "error", err)
		return nil, s.reject(kindTransfer, err)
	}

	observability.TransactionsRecorded.WithLabelValues(kindTransfer, string(transaction.Status)).Inc()
	s.logger.Info("Transfer completed successfully",
		"transaction_id", transaction.ID,
		"debited", req.Amount,
		"credited", credit)
	return transaction, nil
}

func (s *TransactionService) Deposit(accountNumber string, amount decimal.Decimal) (*domain.Transaction, error) {
	start := time.Now()
	defer observeLatency(kindDeposit, start)

	s.logger.Info("Processing deposit", "account", accountNumber, "amount", amount)

	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return nil, s.reject(kindDeposit, err)
	}
	if err := validateAmount(amount); err != nil {
		return nil, s.reject(kindDeposit, err)
	}

	transaction := domain.NewTransaction(account.ID, account.ID, amount, domain.TitleDeposit)

	err = s.store.WithTransaction(func(store domain.Store) error {
		account.Credit(amount)
		if err := store.Account().UpdateAccount(account); err != nil {
			return err
		}
		if err := transaction.Succeed(); err != nil {
			return errors.Internal("failed to resolve transaction", err)
		}
		return store.Transaction().CreateTransaction(transaction)
	})
	if err != nil {
		s.logger.Error("Deposit failed", "transaction_id", transaction.ID, "error", err)
		return nil, s.reject(kindDeposit, err)
	}

	observability.TransactionsRecorded.WithLabelValues(kindDeposit, string(transaction.Status)).Inc()
	s.logger.Info("Deposit completed", "transaction_id", transaction.ID, "balance", account.Balance)
	return transaction, nil
}

func (s *TransactionService) Withdraw(accountNumber string, amount decimal.Decimal) (*domain.Transaction, error) {
	start := time.Now()
	defer observeLatency(kindWithdraw, start)

	s.logger.Info("Processing withdrawal", "account", accountNumber, "amount", amount)

	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return nil, s.reject(kindWithdraw, err)
	}
	if err := validateAmount(amount); err != nil {
		return nil, s.reject(kindWithdraw, err)
	}

	transaction := domain.NewTransaction(account.ID, account.ID, amount, domain.TitleWithdraw)

	if !account.HasFunds(amount) {
		return s.saveFailed(kindWithdraw, transaction, domain.ReasonInsufficientFunds)
	}

	err = s.store.WithTransaction(func(store domain.Store) error {
		if err := account.Debit(amount); err != nil {
			return errors.Internal("debit rejected after funds check", err)
		}
		if err := store.Account().UpdateAccount(account); err != nil {
			return err
		}
		if err := transaction.Succeed(); err != nil {
			return errors.Internal("failed to resolve transaction", err)
		}
		return store.Transaction().CreateTransaction(transaction)
	})
	if err != nil {
		s.logger.Error("Withdrawal failed", "transaction_id", transaction.ID, "error", err)
		return nil, s.reject(kindWithdraw, err)
	}

	observability.TransactionsRecorded.WithLabelValues(kindWithdraw, string(transaction.Status)).Inc()
	s.logger.Info("Withdrawal completed", "transaction_id", transaction.ID, "balance", account.Balance)
	return transaction, nil
}

// saveFailed records a business-rule failure. No balance is touched.
func (s *TransactionService) saveFailed(kind string, transaction *domain.Transaction, reason string) (*domain.Transaction, error) {
	if err := transaction.Fail(reason); err != nil {
		return nil, s.reject(kind, errors.Internal("failed to resolve transaction", err))
	}
	if err := s.store.Transaction().CreateTransaction(transaction); err != nil {
		s.logger.Error("Failed to record failed transaction", "transaction_id", transaction.ID, "error", err)
		return nil, s.reject(kind, err)
	}

	observability.TransactionsRecorded.WithLabelValues(kind, string(transaction.Status)).Inc()
	s.logger.Warn("Transaction recorded as failed",
		"kind", kind,
		"transaction_id", transaction.ID,
		"reason", reason)
	return transaction, nil
}

func (s *TransactionService) reject(kind string, err error) error {
	observability.TransactionErrors.WithLabelValues(kind, string(errors.AsAppError(err).Code)).Inc()
	return err
}

// validateAmount accepts strictly positive amounts with at most two
// fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(domain.MoneyScale)) {
		return errors.ErrInvalidAmount.WithDetails("amount has more than two decimal places")
	}
	return nil
}

func observeLatency(kind string, start time.Time) {
	observability.TransferLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
