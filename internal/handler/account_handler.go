package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
	"minibank/internal/service"
)

type AccountHandler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
}

func NewAccountHandler(accountService *service.AccountService, transactionService *service.TransactionService) *AccountHandler {
	return &AccountHandler{
		accountService:     accountService,
		transactionService: transactionService,
	}
}

type CreateAccountRequest struct {
	Currency string `json:"currency"`
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type BalanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
}

type TransactionPageResponse struct {
	Items []TransactionResponse `json:"items"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
	Total int                   `json:"total"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	identity, err := callerIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accountService.CreateAccount(identity, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance.StringFixed(domain.MoneyScale),
		Currency:      account.Currency,
	})
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	identity, err := callerIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	accounts, err := h.accountService.ListAccounts(identity)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		response = append(response, newAccountResponse(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, errors.ErrInvalidInput.WithDetails("account id must be an integer"))
		return
	}

	identity, err := callerIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	owns, err := h.accountService.IsOwner(accountID, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	if !owns {
		writeError(w, errors.ErrForbidden)
		return
	}

	if err := h.accountService.DeleteAccount(accountID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.transactionService.Deposit)
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.transactionService.Withdraw)
}

type fundsMovement func(accountNumber string, amount decimal.Decimal) (*domain.Transaction, error)

func (h *AccountHandler) moveFunds(w http.ResponseWriter, r *http.Request, move fundsMovement) {
	accountNumber := mux.Vars(r)["number"]
	if err := authorize(h.accountService, r, accountNumber); err != nil {
		writeError(w, err)
		return
	}

	var req AmountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := move(accountNumber, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(transaction))
}

func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	size, err := queryInt(r, "size", service.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accountService.ListTransactions(mux.Vars(r)["number"], page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransactionPageResponse{
		Items: newTransactionResponses(result.Items),
		Page:  result.Page,
		Size:  result.Size,
		Total: result.Total,
	})
}

func (h *AccountHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.accountService.ListIncomingTransactions(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponses(transactions))
}

func (h *AccountHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.accountService.ListOutgoingTransactions(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponses(transactions))
}

// authorize checks that the caller owns the account with accountNumber.
func authorize(accounts *service.AccountService, r *http.Request, accountNumber string) error {
	identity, err := callerIdentity(r)
	if err != nil {
		return err
	}
	owns, err := accounts.IsOwnerByNumber(accountNumber, identity)
	if err != nil {
		return err
	}
	if !owns {
		return errors.ErrForbidden
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ErrInvalidInput.WithDetails(name + " must be an integer")
	}
	return value, nil
}
