package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/crypto"
)

func TestSignupServiceAcmeScenario(t *testing.T) {
	db := openServiceTestDB(t)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewSignupService(db, audit)
	require.NoError(t, err)
	ctx := context.Background()

	alice, err := svc.Signup(ctx, SignupInput{Company: "Acme", Name: "Alice", Email: "alice@acme.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, alice.Role)
	require.NotNil(t, alice.Company)
	require.Equal(t, "Acme", alice.Company.Name)
	require.True(t, crypto.VerifyPassword(alice.PasswordHash, "secret1"))

	bob, err := svc.Signup(ctx, SignupInput{Company: "Acme", Name: "Bob", Email: "bob@acme.com", Password: "secret2"})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, bob.Role)
	require.Equal(t, alice.CompanyID, bob.CompanyID)

	_, err = svc.Signup(ctx, SignupInput{Company: "Acme", Name: "Carol", Email: "alice@acme.com", Password: "secret3"})
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	var companies int64
	require.NoError(t, db.Model(&models.Company{}).Count(&companies).Error)
	require.EqualValues(t, 1, companies)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.EqualValues(t, 2, users)

	var logs []models.AuditLog
	require.NoError(t, db.Where("action = ?", "user.signup").Find(&logs).Error)
	require.Len(t, logs, 2)
}

func TestSignupServiceSameEmailInAnotherCompany(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSignupService(db, nil)
	require.NoError(t, err)

	first, err := svc.Signup(context.Background(), SignupInput{Company: "Acme", Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	second, err := svc.Signup(context.Background(), SignupInput{Company: "Globex", Name: "Alice", Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEqual(t, first.CompanyID, second.CompanyID)
	require.Equal(t, "alice@example.com", second.Email)
	require.Equal(t, models.RoleAdmin, second.Role)
}

func TestSignupServiceValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewSignupService(db, nil)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input SignupInput
		want  error
	}{
		{"missing company", SignupInput{Name: "Alice", Email: "a@x.com", Password: "secret1"}, ErrCompanyRequired},
		{"short name", SignupInput{Company: "Acme", Name: "A", Email: "a@x.com", Password: "secret1"}, ErrInvalidName},
		{"short password", SignupInput{Company: "Acme", Name: "Alice", Email: "a@x.com", Password: "12345"}, ErrWeakPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	var companies int64
	require.NoError(t, db.Model(&models.Company{}).Count(&companies).Error)
	require.Zero(t, companies)
}

func TestSignupServiceRequiresDB(t *testing.T) {
	_, err := NewSignupService(nil, nil)
	require.Error(t, err)
}
