package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minibank/internal/errors"
	"minibank/internal/repository/memory"
)

func TestRegisterOwner(t *testing.T) {
	svc := NewOwnerService(memory.NewStore(discardLogger()).Owner(), discardLogger())

	owner, err := svc.RegisterOwner(" Ada@Example.com ", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.NotZero(t, owner.ID)
	assert.Equal(t, "ada@example.com", owner.Email)

	found, err := svc.GetOwner("ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)

	_, err = svc.RegisterOwner("ada@example.com", "Other", "Person")
	assert.ErrorIs(t, err, errors.ErrDuplicateOwner)
}

func TestRegisterOwner_Validation(t *testing.T) {
	svc := NewOwnerService(memory.NewStore(discardLogger()).Owner(), discardLogger())

	_, err := svc.RegisterOwner("not-an-email", "Ada", "Lovelace")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.RegisterOwner("ada@example.com", "", "Lovelace")
	require.Error(t, err)
	assert.Contains(t, errors.AsAppError(err).Details, "name failed required")
}
