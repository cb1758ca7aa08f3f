package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Failure reasons recorded on FAILED transactions.
const (
	ReasonInsufficientFunds = "insufficient funds"
	ReasonSameAccount       = "source and target accounts must differ"
)

const (
	TitleDeposit  = "Deposit"
	TitleWithdraw = "Withdraw"
)

var (
	ErrInsufficientFunds   = errors.New(ReasonInsufficientFunds)
	ErrTransactionResolved = errors.New("transaction already has a terminal status")
	ErrTransactionPending  = errors.New("pending transactions cannot be persisted")
)

type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Amount          decimal.Decimal   `json:"amount"`
	Title           string            `json:"title"`
	Status          TransactionStatus `json:"status"`
	FailureReason   *string           `json:"failure_reason,omitempty"`
	SourceAccountID int64             `json:"source_account_id"`
	TargetAccountID int64             `json:"target_account_id"`
	Timestamp       time.Time         `json:"timestamp"`
}

// NewTransaction builds a PENDING transaction. It is persisted only after
// Succeed or Fail.
func NewTransaction(sourceID, targetID int64, amount decimal.Decimal, title string) *Transaction {
	return &Transaction{
		ID:              uuid.New(),
		Amount:          amount,
		Title:           title,
		Status:          StatusPending,
		SourceAccountID: sourceID,
		TargetAccountID: targetID,
		Timestamp:       time.Now().UTC(),
	}
}

func (t *Transaction) IsPending() bool { return t.Status == StatusPending }

// AnnotateFX appends the conversion that was applied to the title.
func (t *Transaction) AnnotateFX(amount decimal.Decimal, from string, converted decimal.Decimal, to string) error {
	if !t.IsPending() {
		return ErrTransactionResolved
	}
	t.Title += fmt.Sprintf(" [FX: %s %s -> %s %s]",
		amount.StringFixed(MoneyScale), from, converted.StringFixed(MoneyScale), to)
	return nil
}

func (t *Transaction) Succeed() error {
	if !t.IsPending() {
		return ErrTransactionResolved
	}
	t.Status = StatusSuccess
	return nil
}

func (t *Transaction) Fail(reason string) error {
	if !t.IsPending() {
		return ErrTransactionResolved
	}
	t.Status = StatusFailed
	t.FailureReason = &reason
	return nil
}

type TransactionRepository interface {
	// CreateTransaction rejects PENDING records with ErrTransactionPending.
	CreateTransaction(tx *Transaction) error
	// GetTransactionByID fails with transaction_not_found for an unknown id.
	GetTransactionByID(id uuid.UUID) (*Transaction, error)
	ListIncoming(accountID int64) ([]Transaction, error)
	ListOutgoing(accountID int64) ([]Transaction, error)
	// ListByAccount returns one page of transactions touching the account in
	// either direction, newest first, and the total count.
	ListByAccount(accountID int64, limit, offset int) ([]Transaction, int, error)
}
