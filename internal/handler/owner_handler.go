package handler

import (
	"net/http"

	"minibank/internal/service"
)

type OwnerHandler struct {
	ownerService *service.OwnerService
}

func NewOwnerHandler(ownerService *service.OwnerService) *OwnerHandler {
	return &OwnerHandler{ownerService: ownerService}
}

type RegisterOwnerRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

type OwnerResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

func (h *OwnerHandler) RegisterOwner(w http.ResponseWriter, r *http.Request) {
	var req RegisterOwnerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	owner, err := h.ownerService.RegisterOwner(req.Email, req.Name, req.Surname)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, OwnerResponse{
		ID:      owner.ID,
		Email:   owner.Email,
		Name:    owner.Name,
		Surname: owner.Surname,
	})
}
