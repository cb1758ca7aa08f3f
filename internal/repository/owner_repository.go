package repository

import (
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"minibank/internal/domain"
	"minibank/internal/errors"
)

type ownerRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewOwnerRepository(db SQLExecutor, logger *slog.Logger) domain.OwnerRepository {
	return &ownerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ownerRepository) CreateOwner(owner *domain.Owner) error {
	query := `
		INSERT INTO owners (email, name, surname, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRow(query, owner.Email, owner.Name, owner.Surname, now).Scan(&owner.ID)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.logger.Warn("Duplicate owner registration attempt", "email", owner.Email)
			return errors.ErrDuplicateOwner
		}
		r.logger.Error("Failed to create owner", "email", owner.Email, "error", err)
		return errors.Internal("failed to create owner", err)
	}

	owner.CreatedAt = now
	return nil
}

func (r *ownerRepository) GetOwner(id int64) (*domain.Owner, error) {
	query := `SELECT id, email, name, surname, created_at FROM owners WHERE id = $1`
	return r.scanOwner(r.db.QueryRow(query, id))
}

func (r *ownerRepository) GetOwnerByEmail(email string) (*domain.Owner, error) {
	query := `SELECT id, email, name, surname, created_at FROM owners WHERE email = $1`
	return r.scanOwner(r.db.QueryRow(query, email))
}

func (r *ownerRepository) scanOwner(row *sql.Row) (*domain.Owner, error) {
	var owner domain.Owner
	err := row.Scan(&owner.ID, &owner.Email, &owner.Name, &owner.Surname, &owner.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrOwnerNotFound
		}
		r.logger.Error("Failed to get owner", "error", err)
		return nil, errors.Internal("failed to get owner", err)
	}
	return &owner, nil
}
