package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/models"
)

func TestIdentityFromUser(t *testing.T) {
	user := &models.User{BaseModel: models.BaseModel{ID: "u1"}, CompanyID: "c1", Role: "admin", Email: "a@b.c", Name: "A"}

	id, err := IdentityFromUser(user)
	require.NoError(t, err)
	require.Equal(t, Identity{UserID: "u1", CompanyID: "c1", Role: models.RoleAdmin, Email: "a@b.c", Name: "A"}, id)
	require.True(t, id.IsAdmin())

	_, err = IdentityFromUser(&models.User{BaseModel: models.BaseModel{ID: "u1"}})
	require.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = IdentityFromUser(nil)
	require.ErrorIs(t, err, ErrInvalidIdentity)
}
