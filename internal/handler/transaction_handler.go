package handler

import (
	"net/http"

	"minibank/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	accountService     *service.AccountService
}

func NewTransactionHandler(transactionService *service.TransactionService, accountService *service.AccountService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		accountService:     accountService,
	}
}

type TransferRequest struct {
	SourceAccountNumber string `json:"source_account_number"`
	TargetAccountNumber string `json:"target_account_number"`
	Amount              string `json:"amount"`
	Title               string `json:"title"`
}

// Transfer answers 201 for both SUCCESS and FAILED outcomes; the status
// field tells them apart.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := authorize(h.accountService, r, req.SourceAccountNumber); err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.transactionService.Transfer(&service.TransferRequest{
		SourceAccountNumber: req.SourceAccountNumber,
		TargetAccountNumber: req.TargetAccountNumber,
		Amount:              amount,
		Title:               req.Title,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(transaction))
}
