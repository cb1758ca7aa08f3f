// Package memory is an in-process ledger store. Transactions work on a copy
// of the state that replaces the live state on commit, so a failed unit of
// work leaves nothing behind.
package memory

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

type state struct {
	accounts      map[int64]domain.Account
	transactions  []domain.Transaction
	rates         map[string][]domain.ExchangeRate
	owners        map[int64]domain.Owner
	nextAccountID int64
	nextOwnerID   int64
	nextRateID    int64
}

func newState() *state {
	return &state{
		accounts: make(map[int64]domain.Account),
		rates:    make(map[string][]domain.ExchangeRate),
		owners:   make(map[int64]domain.Owner),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:      make(map[int64]domain.Account, len(s.accounts)),
		transactions:  append([]domain.Transaction(nil), s.transactions...),
		rates:         make(map[string][]domain.ExchangeRate, len(s.rates)),
		owners:        make(map[int64]domain.Owner, len(s.owners)),
		nextAccountID: s.nextAccountID,
		nextOwnerID:   s.nextOwnerID,
		nextRateID:    s.nextRateID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = append([]domain.ExchangeRate(nil), v...)
	}
	for k, v := range s.owners {
		c.owners[k] = v
	}
	return c
}

// Store implements domain.Store. The zero value is not usable; call NewStore.
type Store struct {
	mu     *sync.RWMutex
	root   **state
	tx     *state // non-nil inside WithTransaction
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	st := newState()
	return &Store{
		mu:     &sync.RWMutex{},
		root:   &st,
		logger: logger,
	}
}

// read runs fn against the visible state.
func (s *Store) read(fn func(*state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(*s.root)
}

// write runs fn against the visible state. Outside a transaction each write
// is its own atomic unit.
func (s *Store) write(fn func(*state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := (*s.root).clone()
	if err := fn(work); err != nil {
		return err
	}
	*s.root = work
	return nil
}

func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txStore := &Store{mu: s.mu, root: s.root, tx: (*s.root).clone(), logger: s.logger}
	if err := fn(txStore); err != nil {
		s.logger.Debug("Rolling back in-memory transaction", "error", err)
		return err
	}
	*s.root = txStore.tx
	return nil
}

func (s *Store) Account() domain.AccountRepository         { return accountRepository{s} }
func (s *Store) Transaction() domain.TransactionRepository { return transactionRepository{s} }
func (s *Store) ExchangeRate() domain.ExchangeRateRepository {
	return exchangeRateRepository{s}
}
func (s *Store) Owner() domain.OwnerRepository { return ownerRepository{s} }

type accountRepository struct{ s *Store }

func (r accountRepository) CreateAccount(account *domain.Account) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.owners[account.OwnerID]; !ok {
			return errors.ErrOwnerNotFound
		}
		for _, existing := range st.accounts {
			if existing.AccountNumber == account.AccountNumber {
				return errors.ErrDuplicateAccount
			}
		}
		st.nextAccountID++
		now := time.Now().UTC()
		account.ID = st.nextAccountID
		account.CreatedAt = now
		account.UpdatedAt = now
		st.accounts[account.ID] = *account
		return nil
	})
}

func (r accountRepository) GetAccount(id int64) (*domain.Account, error) {
	var found *domain.Account
	err := r.s.read(func(st *state) error {
		account, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		found = &account
		return nil
	})
	return found, err
}

func (r accountRepository) GetAccountByNumber(number string) (*domain.Account, error) {
	var found *domain.Account
	err := r.s.read(func(st *state) error {
		for _, account := range st.accounts {
			if account.AccountNumber == number {
				found = &account
				return nil
			}
		}
		return errors.ErrAccountNotFound
	})
	return found, err
}

func (r accountRepository) ListAccountsByOwner(ownerID int64) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	err := r.s.read(func(st *state) error {
		for _, account := range st.accounts {
			if account.OwnerID == ownerID {
				accounts = append(accounts, account)
			}
		}
		return nil
	})
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, err
}

func (r accountRepository) UpdateAccount(account *domain.Account) error {
	if account.Balance.IsNegative() {
		return errors.Internal("refusing to persist negative balance", domain.ErrInsufficientFunds)
	}
	return r.s.write(func(st *state) error {
		stored, ok := st.accounts[account.ID]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if stored.Version != account.Version {
			return errors.ErrVersionConflict
		}
		stored.Balance = account.Balance
		stored.Version++
		stored.UpdatedAt = time.Now().UTC()
		st.accounts[account.ID] = stored

		account.Version = stored.Version
		account.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r accountRepository) DeleteAccount(id int64) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.accounts[id]; !ok {
			return errors.ErrAccountNotFound
		}
		delete(st.accounts, id)
		kept := st.transactions[:0]
		for _, t := range st.transactions {
			if t.SourceAccountID != id && t.TargetAccountID != id {
				kept = append(kept, t)
			}
		}
		st.transactions = kept
		return nil
	})
}

type transactionRepository struct{ s *Store }

func (r transactionRepository) CreateTransaction(tx *domain.Transaction) error {
	if tx.IsPending() {
		return errors.Internal("failed to create transaction", domain.ErrTransactionPending)
	}
	return r.s.write(func(st *state) error {
		if _, ok := st.accounts[tx.SourceAccountID]; !ok {
			return errors.ErrAccountNotFound
		}
		if _, ok := st.accounts[tx.TargetAccountID]; !ok {
			return errors.ErrAccountNotFound
		}
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r transactionRepository) GetTransactionByID(id uuid.UUID) (*domain.Transaction, error) {
	var found *domain.Transaction
	err := r.s.read(func(st *state) error {
		for _, t := range st.transactions {
			if t.ID == id {
				found = &t
				return nil
			}
		}
		return errors.ErrTransactionNotFound
	})
	return found, err
}

func (r transactionRepository) filter(keep func(domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	_ = r.s.read(func(st *state) error {
		for _, t := range st.transactions {
			if keep(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (r transactionRepository) ListIncoming(accountID int64) ([]domain.Transaction, error) {
	return r.filter(func(t domain.Transaction) bool { return t.TargetAccountID == accountID }), nil
}

func (r transactionRepository) ListOutgoing(accountID int64) ([]domain.Transaction, error) {
	return r.filter(func(t domain.Transaction) bool { return t.SourceAccountID == accountID }), nil
}

func (r transactionRepository) ListByAccount(accountID int64, limit, offset int) ([]domain.Transaction, int, error) {
	all := r.filter(func(t domain.Transaction) bool {
		return t.SourceAccountID == accountID || t.TargetAccountID == accountID
	})
	total := len(all)
	if offset < 0 {
		return nil, 0, errors.ErrInvalidInput.WithDetails("offset must not be negative")
	}
	if offset >= total {
		return []domain.Transaction{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

type exchangeRateRepository struct{ s *Store }

func (r exchangeRateRepository) GetLatestRate(pair domain.CurrencyPair) (*domain.ExchangeRate, error) {
	var latest *domain.ExchangeRate
	err := r.s.read(func(st *state) error {
		for _, rate := range st.rates[pair.Key()] {
			if latest == nil || !rate.Timestamp.Before(latest.Timestamp) {
				latest = &rate
			}
		}
		return nil
	})
	return latest, err
}

func (r exchangeRateRepository) SaveRate(rate *domain.ExchangeRate) error {
	return r.s.write(func(st *state) error {
		st.nextRateID++
		rate.ID = st.nextRateID
		st.rates[rate.Pair.Key()] = append(st.rates[rate.Pair.Key()], *rate)
		return nil
	})
}

type ownerRepository struct{ s *Store }

func (r ownerRepository) CreateOwner(owner *domain.Owner) error {
	return r.s.write(func(st *state) error {
		for _, existing := range st.owners {
			if strings.EqualFold(existing.Email, owner.Email) {
				return errors.ErrDuplicateOwner
			}
		}
		st.nextOwnerID++
		owner.ID = st.nextOwnerID
		owner.CreatedAt = time.Now().UTC()
		st.owners[owner.ID] = *owner
		return nil
	})
}

func (r ownerRepository) GetOwner(id int64) (*domain.Owner, error) {
	var found *domain.Owner
	err := r.s.read(func(st *state) error {
		owner, ok := st.owners[id]
		if !ok {
			return errors.ErrOwnerNotFound
		}
		found = &owner
		return nil
	})
	return found, err
}

func (r ownerRepository) GetOwnerByEmail(email string) (*domain.Owner, error) {
	var found *domain.Owner
	err := r.s.read(func(st *state) error {
		for _, owner := range st.owners {
			if strings.EqualFold(owner.Email, email) {
				found = &owner
				return nil
			}
		}
		return errors.ErrOwnerNotFound
	})
	return found, err
}
