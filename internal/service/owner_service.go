package service

import (
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

type OwnerService struct {
	owners   domain.OwnerRepository
	validate *validator.Validate
	logger   *slog.Logger
}

type registration struct {
	Email   string `validate:"required,email,max=255"`
	Name    string `validate:"required,max=255"`
	Surname string `validate:"required,max=255"`
}

func NewOwnerService(owners domain.OwnerRepository, logger *slog.Logger) *OwnerService {
	return &OwnerService{
		owners:   owners,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *OwnerService) RegisterOwner(email, name, surname string) (*domain.Owner, error) {
	reg := registration{
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Name:    strings.TrimSpace(name),
		Surname: strings.TrimSpace(surname),
	}
	if err := s.validate.Struct(reg); err != nil {
		return nil, errors.ErrInvalidInput.WithDetails(describeValidation(err))
	}

	owner := &domain.Owner{Email: reg.Email, Name: reg.Name, Surname: reg.Surname}
	if err := s.owners.CreateOwner(owner); err != nil {
		return nil, err
	}

	s.logger.Info("Owner registered", "owner_id", owner.ID)
	return owner, nil
}

func (s *OwnerService) GetOwner(email string) (*domain.Owner, error) {
	return s.owners.GetOwnerByEmail(strings.ToLower(strings.TrimSpace(email)))
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}
