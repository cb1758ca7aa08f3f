package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minibank/internal/domain"
	"minibank/internal/repository/memory"
	"minibank/internal/service"
)

type stubConverter struct{ rate decimal.Decimal }

func (c stubConverter) Convert(amount decimal.Decimal, _ domain.CurrencyPair) (decimal.Decimal, error) {
	return amount.Mul(c.rate).Round(domain.MoneyScale), nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *Error          `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router *mux.Router
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore(logger)

	accounts := service.NewAccountService(store, logger)
	transactions := service.NewTransactionService(store, stubConverter{rate: decimal.NewFromInt(4)}, logger)
	owners := service.NewOwnerService(store.Owner(), logger)

	ownerHandler := NewOwnerHandler(owners)
	accountHandler := NewAccountHandler(accounts, transactions)
	transactionHandler := NewTransactionHandler(transactions, accounts)

	router := mux.NewRouter()
	router.HandleFunc("/owners", ownerHandler.RegisterOwner).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.DeleteAccount).Methods("DELETE")
	router.HandleFunc("/accounts/{number}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{number}/balance", accountHandler.GetBalance).Methods("GET")
	router.HandleFunc("/accounts/{number}/deposit", accountHandler.Deposit).Methods("POST")
	router.HandleFunc("/accounts/{number}/withdraw", accountHandler.Withdraw).Methods("POST")
	router.HandleFunc("/accounts/{number}/transactions", accountHandler.ListTransactions).Methods("GET")
	router.HandleFunc("/accounts/{number}/transactions/incoming", accountHandler.ListIncoming).Methods("GET")
	router.HandleFunc("/accounts/{number}/transactions/outgoing", accountHandler.ListOutgoing).Methods("GET")
	router.HandleFunc("/transactions", transactionHandler.Transfer).Methods("POST")

	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path, owner, body string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testAPI) registerOwner(email string) {
	a.t.Helper()
	rec, _ := a.do(http.MethodPost, "/owners", "", `{"email":"`+email+`","name":"Test","surname":"User"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code)
}

func (a *testAPI) openAccount(owner, currency string) AccountResponse {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/accounts", owner, `{"currency":"`+currency+`"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code)
	var account AccountResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &account))
	return account
}

func (a *testAPI) deposit(owner, number, amount string) TransactionResponse {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/accounts/"+number+"/deposit", owner, `{"amount":"`+amount+`"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code)
	var tx TransactionResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &tx))
	return tx
}

func TestCreateAndGetAccount(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")

	account := api.openAccount("kim@example.com", "pln")
	assert.Equal(t, "PLN", account.Currency)
	assert.Equal(t, "0.00", account.Balance)
	assert.Len(t, account.AccountNumber, domain.AccountNumberLength)

	rec, env := api.do(http.MethodGet, "/accounts/"+account.AccountNumber, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var got AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, account.ID, got.ID)
}

func TestCreateAccount_RequiresIdentity(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(http.MethodPost, "/accounts", "", `{"currency":"PLN"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "forbidden", env.Error.Code)
}

func TestCreateAccount_RejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")

	rec, env := api.do(http.MethodPost, "/accounts", "kim@example.com", `{"currency":"PLN","balance":"100"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Code)
}

func TestDepositWithdrawAndBalance(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	account := api.openAccount("kim@example.com", "PLN")

	tx := api.deposit("kim@example.com", account.AccountNumber, "25.50")
	assert.Equal(t, "SUCCESS", tx.Status)
	assert.Equal(t, "25.50", tx.Amount)

	rec, env := api.do(http.MethodPost, "/accounts/"+account.AccountNumber+"/withdraw", "kim@example.com", `{"amount":"30"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var failed TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &failed))
	assert.Equal(t, "FAILED", failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, domain.ReasonInsufficientFunds, *failed.FailureReason)

	rec, env = api.do(http.MethodGet, "/accounts/"+account.AccountNumber+"/balance", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var balance BalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &balance))
	assert.Equal(t, "25.50", balance.Balance)
}

func TestDeposit_ForeignOwnerIsForbidden(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	api.registerOwner("lee@example.com")
	account := api.openAccount("kim@example.com", "PLN")

	rec, env := api.do(http.MethodPost, "/accounts/"+account.AccountNumber+"/deposit", "lee@example.com", `{"amount":"1.00"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Code)
}

func TestDeposit_BadAmount(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	account := api.openAccount("kim@example.com", "PLN")

	for _, body := range []string{`{"amount":"abc"}`, `{"amount":"-5"}`, `{"amount":"0.001"}`} {
		rec, env := api.do(http.MethodPost, "/accounts/"+account.AccountNumber+"/deposit", "kim@example.com", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid_amount", env.Error.Code, body)
	}
}

func TestTransfer_CrossCurrency(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	api.registerOwner("lee@example.com")
	source := api.openAccount("kim@example.com", "USD")
	target := api.openAccount("lee@example.com", "PLN")
	api.deposit("kim@example.com", source.AccountNumber, "10.00")

	body := `{"source_account_number":"` + source.AccountNumber + `","target_account_number":"` + target.AccountNumber + `","amount":"2.50","title":"coffee"}`
	rec, env := api.do(http.MethodPost, "/transactions", "kim@example.com", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var tx TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, "SUCCESS", tx.Status)
	assert.Equal(t, "coffee [FX: 2.50 USD -> 10.00 PLN]", tx.Title)

	rec, env = api.do(http.MethodGet, "/accounts/"+target.AccountNumber+"/transactions/incoming", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var incoming []TransactionResponse
	require.NoError(t, json.Unmarshal(env.Data, &incoming))
	require.Len(t, incoming, 1)
	assert.Equal(t, tx.TransactionID, incoming[0].TransactionID)

	// the target owner cannot move money out of the source account
	rec, _ = api.do(http.MethodPost, "/transactions", "lee@example.com", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransfer_UnknownSourceIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")

	body := `{"source_account_number":"00000000000000000000000000","target_account_number":"1","amount":"1","title":"x"}`
	rec, env := api.do(http.MethodPost, "/transactions", "kim@example.com", body)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "account_not_found", env.Error.Code)
}

func TestListTransactions_Paging(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	account := api.openAccount("kim@example.com", "PLN")
	for i := 0; i < 3; i++ {
		api.deposit("kim@example.com", account.AccountNumber, "1.00")
	}

	rec, env := api.do(http.MethodGet, "/accounts/"+account.AccountNumber+"/transactions?page=0&size=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page TransactionPageResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	rec, env = api.do(http.MethodGet, "/accounts/"+account.AccountNumber+"/transactions?page=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Code)

	rec, env = api.do(http.MethodGet, "/accounts/"+account.AccountNumber+"/transactions?page=922337203685477581&size=20", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", env.Error.Code)
}

func TestDeleteAccount(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	api.registerOwner("lee@example.com")
	account := api.openAccount("kim@example.com", "PLN")
	path := "/accounts/" + strconv.FormatInt(account.ID, 10)
	api.deposit("kim@example.com", account.AccountNumber, "1.00")

	rec, env := api.do(http.MethodDelete, path, "kim@example.com", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "non_zero_balance", env.Error.Code)

	rec, _ = api.do(http.MethodPost, "/accounts/"+account.AccountNumber+"/withdraw", "kim@example.com", `{"amount":"1.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = api.do(http.MethodDelete, path, "lee@example.com", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = api.do(http.MethodDelete, path, "kim@example.com", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = api.do(http.MethodGet, "/accounts/"+account.AccountNumber, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterOwner_Duplicate(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")

	rec, env := api.do(http.MethodPost, "/owners", "", `{"email":"KIM@example.com","name":"K","surname":"M"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_owner", env.Error.Code)
}

func TestListAccounts(t *testing.T) {
	api := newTestAPI(t)
	api.registerOwner("kim@example.com")
	api.openAccount("kim@example.com", "PLN")
	api.openAccount("kim@example.com", "EUR")

	rec, env := api.do(http.MethodGet, "/accounts", "kim@example.com", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []AccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	assert.Len(t, accounts, 2)
}
