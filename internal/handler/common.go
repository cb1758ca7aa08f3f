package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

// OwnerHeader carries the caller identity on mutating account routes.
const OwnerHeader = "X-Owner-Email"

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type AccountResponse struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
	Version       int64  `json:"version"`
}

type TransactionResponse struct {
	TransactionID   string  `json:"transaction_id"`
	Amount          string  `json:"amount"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	FailureReason   *string `json:"failure_reason,omitempty"`
	SourceAccountID int64   `json:"source_account_id"`
	TargetAccountID int64   `json:"target_account_id"`
	Timestamp       string  `json:"timestamp"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		Balance:       a.Balance.StringFixed(domain.MoneyScale),
		Currency:      a.Currency,
		Version:       a.Version,
	}
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   t.ID.String(),
		Amount:          t.Amount.StringFixed(domain.MoneyScale),
		Title:           t.Title,
		Status:          string(t.Status),
		FailureReason:   t.FailureReason,
		SourceAccountID: t.SourceAccountID,
		TargetAccountID: t.TargetAccountID,
		Timestamp:       t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func newTransactionResponses(ts []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(ts))
	for i := range ts {
		out = append(out, newTransactionResponse(&ts[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

// writeError renders any error; values that are not *errors.AppError are
// reported as internal_error without leaking their text.
func writeError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)
	w.Header().Set("Content-Type", "application/json")

	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Code == errors.InternalError {
		errResponse.Details = ""
	}

	w.WriteHeader(appErr.HTTPStatus())
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

func decodeBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errors.NewAppError(errors.InvalidAmount, "invalid amount format").WithDetails(err.Error())
	}
	return amount, nil
}

// callerIdentity returns the owner identity supplied by the caller.
func callerIdentity(r *http.Request) (string, error) {
	identity := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if identity == "" {
		return "", errors.ErrForbidden.WithDetails(OwnerHeader + " header is required")
	}
	return identity, nil
}
