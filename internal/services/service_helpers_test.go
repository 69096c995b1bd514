package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/database/testutil"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/mail"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func seedCompany(t *testing.T, db *gorm.DB, name string) *models.Company {
	t.Helper()
	company := &models.Company{Name: name}
	require.NoError(t, db.Create(company).Error)
	return company
}

// seedMember inserts a user without hashing a password; tests that log in use SignupService.
func seedMember(t *testing.T, db *gorm.DB, company *models.Company, email, name, role string) auth.Identity {
	t.Helper()
	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: "unused",
		CompanyID:    company.ID,
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)

	identity, err := auth.IdentityFromUser(user)
	require.NoError(t, err)
	return identity
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}
