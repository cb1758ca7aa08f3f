package service

import (
	stderrors "errors"
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// accountNumberAttempts bounds retries when a generated number collides.
	accountNumberAttempts = 3
)

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

// CreateAccount opens an empty account in currencyCode for the owner
// identified by ownerEmail.
func (s *AccountService) CreateAccount(ownerEmail, currencyCode string) (*domain.Account, error) {
	s.logger.Info("Creating account", "owner", ownerEmail, "currency", currencyCode)

	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	if ownerEmail == "" {
		return nil, errors.ErrInvalidInput.WithDetails("owner is required")
	}
	if strings.TrimSpace(currencyCode) == "" {
		return nil, errors.ErrInvalidCurrency
	}

	owner, err := s.store.Owner().GetOwnerByEmail(ownerEmail)
	if err != nil {
		return nil, err
	}

	currency, ok := domain.NormalizeCurrency(currencyCode)
	if !ok {
		return nil, errors.ErrCurrencyNotFound.WithDetails(currency)
	}

	var account *domain.Account
	for attempt := 1; attempt <= accountNumberAttempts; attempt++ {
		account = domain.NewAccount(owner.ID, currency)
		err = s.store.Account().CreateAccount(account)
		if !stderrors.Is(err, errors.ErrDuplicateAccount) {
			break
		}
		s.logger.Warn("Account number collision, regenerating", "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_id", account.ID, "account_number", account.AccountNumber)
	return account, nil
}

func (s *AccountService) GetAccount(accountNumber string) (*domain.Account, error) {
	return s.store.Account().GetAccountByNumber(accountNumber)
}

func (s *AccountService) GetBalance(accountNumber string) (decimal.Decimal, error) {
	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *AccountService) ListAccounts(ownerEmail string) ([]domain.Account, error) {
	owner, err := s.store.Owner().GetOwnerByEmail(strings.ToLower(strings.TrimSpace(ownerEmail)))
	if err != nil {
		return nil, err
	}
	return s.store.Account().ListAccountsByOwner(owner.ID)
}

func (s *AccountService) ListIncomingTransactions(accountNumber string) ([]domain.Transaction, error) {
	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().ListIncoming(account.ID)
}

func (s *AccountService) ListOutgoingTransactions(accountNumber string) ([]domain.Transaction, error) {
	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return nil, err
	}
	return s.store.Transaction().ListOutgoing(account.ID)
}

type TransactionPage struct {
	Items []domain.Transaction `json:"items"`
	Page  int                  `json:"page"`
	Size  int                  `json:"size"`
	Total int                  `json:"total"`
}

// ListTransactions pages through every transaction touching the account,
// newest first. page is zero-based.
func (s *AccountService) ListTransactions(accountNumber string, page, size int) (*TransactionPage, error) {
	if page < 0 {
		return nil, errors.ErrInvalidInput.WithDetails("page must not be negative")
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > (math.MaxInt-size)/size {
		return nil, errors.ErrInvalidInput.WithDetails("page is out of range")
	}

	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.Transaction().ListByAccount(account.ID, size, page*size)
	if err != nil {
		return nil, err
	}

	return &TransactionPage{Items: items, Page: page, Size: size, Total: total}, nil
}

// DeleteAccount removes an account whose balance is exactly zero.
func (s *AccountService) DeleteAccount(accountID int64) error {
	s.logger.Info("Deleting account", "account_id", accountID)

	return s.store.WithTransaction(func(store domain.Store) error {
		account, err := store.Account().GetAccount(accountID)
		if err != nil {
			return err
		}
		if !account.CanDelete() {
			s.logger.Warn("Refusing to delete account with funds", "account_id", accountID, "balance", account.Balance)
			return errors.ErrNonZeroBalance.WithDetails("balance is " + account.Balance.StringFixed(domain.MoneyScale))
		}
		return store.Account().DeleteAccount(accountID)
	})
}

// IsOwner reports whether identity owns the account with the given id.
func (s *AccountService) IsOwner(accountID int64, identity string) (bool, error) {
	account, err := s.store.Account().GetAccount(accountID)
	if err != nil {
		return false, err
	}
	return s.ownedBy(account, identity)
}

// IsOwnerByNumber reports whether identity owns the account with the given number.
func (s *AccountService) IsOwnerByNumber(accountNumber, identity string) (bool, error) {
	account, err := s.store.Account().GetAccountByNumber(accountNumber)
	if err != nil {
		return false, err
	}
	return s.ownedBy(account, identity)
}

func (s *AccountService) ownedBy(account *domain.Account, identity string) (bool, error) {
	owner, err := s.store.Owner().GetOwner(account.OwnerID)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(owner.Email, strings.TrimSpace(identity)), nil
}
