package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrInvalidID indicates a malformed resource identifier.
	ErrInvalidID = errors.New("services: invalid id")
	// ErrUserAlreadyExists indicates the email is already registered within the company.
	ErrUserAlreadyExists = errors.New("services: user already exists in company")
	// ErrUserNotFound indicates no user with the id exists in the caller's company.
	ErrUserNotFound = errors.New("services: user not found")
	// ErrWeakPassword indicates the password does not satisfy the minimum length.
	ErrWeakPassword = errors.New("services: password too short")
	// ErrInvalidName indicates a display name that is too short.
	ErrInvalidName = errors.New("services: name too short")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}
