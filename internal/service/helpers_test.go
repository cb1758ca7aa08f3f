package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"minibank/internal/domain"
	"minibank/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockForexProvider struct {
	mock.Mock
}

func (m *mockForexProvider) GetSpotRate(code string) (decimal.Decimal, error) {
	args := m.Called(code)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) Convert(amount decimal.Decimal, pair domain.CurrencyPair) (decimal.Decimal, error) {
	args := m.Called(amount, pair)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixture is a memory-backed ledger with one registered owner.
type fixture struct {
	store    *memory.Store
	owner    *domain.Owner
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(discardLogger())
	owner := &domain.Owner{Email: "jan@example.com", Name: "Jan", Surname: "Kowalski"}
	require.NoError(t, store.Owner().CreateOwner(owner))

	return &fixture{
		store:    store,
		owner:    owner,
		accounts: NewAccountService(store, discardLogger()),
	}
}

// openAccount creates an account holding balance in currency.
func (f *fixture) openAccount(t *testing.T, currency, balance string) *domain.Account {
	t.Helper()
	account, err := f.accounts.CreateAccount(f.owner.Email, currency)
	require.NoError(t, err)

	if b := dec(balance); !b.IsZero() {
		account.Credit(b)
		require.NoError(t, f.store.Account().UpdateAccount(account))
	}
	return account
}

func (f *fixture) balance(t *testing.T, account *domain.Account) string {
	t.Helper()
	current, err := f.store.Account().GetAccount(account.ID)
	require.NoError(t, err)
	return current.Balance.StringFixed(domain.MoneyScale)
}
