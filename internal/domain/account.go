package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for balances and amounts.
const MoneyScale = 2

type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	OwnerID       int64           `json:"owner_id"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewAccount returns an unsaved account with a zero balance and a fresh number.
func NewAccount(ownerID int64, currency string) *Account {
	return &Account{
		AccountNumber: GenerateAccountNumber(),
		Balance:       decimal.Zero,
		Currency:      currency,
		OwnerID:       ownerID,
	}
}

// HasFunds reports whether the balance covers amount.
func (a *Account) HasFunds(amount decimal.Decimal) bool {
	return !a.Balance.LessThan(amount)
}

// Debit subtracts amount from the balance. The balance is left untouched if
// it would go negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !a.HasFunds(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount).Round(MoneyScale)
	return nil
}

func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount).Round(MoneyScale)
}

// CanDelete reports whether the account may be removed.
func (a *Account) CanDelete() bool {
	return a.Balance.IsZero()
}

// AccountRepository persists accounts. UpdateAccount is a compare-and-swap on
// Version: it fails with a version conflict when the stored version differs
// from account.Version, and bumps account.Version on success.
type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(id int64) (*Account, error)
	GetAccountByNumber(number string) (*Account, error)
	ListAccountsByOwner(ownerID int64) ([]Account, error)
	UpdateAccount(account *Account) error
	DeleteAccount(id int64) error
}
