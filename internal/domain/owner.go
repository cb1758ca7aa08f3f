package domain

import "time"

// Owner is the identity accounts belong to. Email is the identity value
// callers pass into the core.
type Owner struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"created_at"`
}

type OwnerRepository interface {
	CreateOwner(owner *Owner) error
	GetOwner(id int64) (*Owner, error)
	GetOwnerByEmail(email string) (*Owner, error)
}
