package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)

	account, err := f.accounts.CreateAccount("  JAN@example.com ", "eur")

	require.NoError(t, err)
	assert.NotZero(t, account.ID)
	assert.True(t, domain.IsAccountNumber(account.AccountNumber))
	assert.Equal(t, "EUR", account.Currency)
	assert.True(t, account.Balance.IsZero())
	assert.Equal(t, f.owner.ID, account.OwnerID)
}

func TestCreateAccount_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.CreateAccount("ghost@example.com", "PLN")
	assert.ErrorIs(t, err, errors.ErrOwnerNotFound)

	_, err = f.accounts.CreateAccount(f.owner.Email, "")
	assert.ErrorIs(t, err, errors.ErrInvalidCurrency)

	_, err = f.accounts.CreateAccount(f.owner.Email, "QQQ")
	assert.ErrorIs(t, err, errors.ErrCurrencyNotFound)
	assert.True(t, errors.IsNotFound(err))

	_, err = f.accounts.CreateAccount("", "PLN")
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	funded := f.openAccount(t, "PLN", "0.01")
	empty := f.openAccount(t, "PLN", "0")

	err := f.accounts.DeleteAccount(funded.ID)
	assert.ErrorIs(t, err, errors.ErrNonZeroBalance)
	assert.True(t, errors.IsDomainFailure(err))
	_, err = f.accounts.GetAccount(funded.AccountNumber)
	assert.NoError(t, err)

	require.NoError(t, f.accounts.DeleteAccount(empty.ID))
	_, err = f.accounts.GetAccount(empty.AccountNumber)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)

	assert.ErrorIs(t, f.accounts.DeleteAccount(empty.ID), errors.ErrAccountNotFound)
}

func TestIsOwner(t *testing.T) {
	f := newFixture(t)
	account := f.openAccount(t, "PLN", "0")

	owns, err := f.accounts.IsOwner(account.ID, "JAN@EXAMPLE.COM")
	require.NoError(t, err)
	assert.True(t, owns)

	owns, err = f.accounts.IsOwner(account.ID, "eve@example.com")
	require.NoError(t, err)
	assert.False(t, owns)

	owns, err = f.accounts.IsOwnerByNumber(account.AccountNumber, f.owner.Email)
	require.NoError(t, err)
	assert.True(t, owns)

	_, err = f.accounts.IsOwner(12345, f.owner.Email)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestGetBalanceAndListAccounts(t *testing.T) {
	f := newFixture(t)
	first := f.openAccount(t, "PLN", "12.34")
	f.openAccount(t, "USD", "0")

	balance, err := f.accounts.GetBalance(first.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, "12.34", balance.StringFixed(2))

	accounts, err := f.accounts.ListAccounts(f.owner.Email)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestListTransactions_Directions(t *testing.T) {
	f := newFixture(t)
	svc := newTransactionService(f, &mockConverter{})
	a := f.openAccount(t, "PLN", "10.00")
	b := f.openAccount(t, "PLN", "0")

	_, err := svc.Transfer(transfer(a, b, "3.00", "one"))
	require.NoError(t, err)
	_, err = svc.Transfer(transfer(a, b, "4.00", "two"))
	require.NoError(t, err)

	outgoing, err := f.accounts.ListOutgoingTransactions(a.AccountNumber)
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	incoming, err := f.accounts.ListIncomingTransactions(a.AccountNumber)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	incoming, err = f.accounts.ListIncomingTransactions(b.AccountNumber)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)
}

func TestListTransactions_Paging(t *testing.T) {
	f := newFixture(t)
	svc := newTransactionService(f, &mockConverter{})
	account := f.openAccount(t, "PLN", "0")
	for i := 0; i < 3; i++ {
		_, err := svc.Deposit(account.AccountNumber, dec("1.00"))
		require.NoError(t, err)
	}

	page, err := f.accounts.ListTransactions(account.AccountNumber, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	page, err = f.accounts.ListTransactions(account.AccountNumber, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.Size)

	page, err = f.accounts.ListTransactions(account.AccountNumber, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Size)

	_, err = f.accounts.ListTransactions(account.AccountNumber, -1, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestListTransactions_RejectsOverflowingPage(t *testing.T) {
	f := newFixture(t)
	account := f.openAccount(t, "PLN", "0")

	_, err := f.accounts.ListTransactions(account.AccountNumber, math.MaxInt/20+1, 20)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = f.accounts.ListTransactions(account.AccountNumber, math.MaxInt, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	page, err := f.accounts.ListTransactions(account.AccountNumber, 1000, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
