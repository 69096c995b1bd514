package handlers

import (
	"errors"

	iauth "github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/services"
	appErrors "github.com/charlesng35/hrmatrix/pkg/errors"
)

// Errors shared across resources. Anything unmapped falls through to appErrors.FromError.
var errorMap = []struct {
	target error
	build  func() *appErrors.AppError
}{
	{services.ErrInvalidID, badRequest("Invalid id")},
	{services.ErrInvalidName, badRequest("Name must be at least 2 characters")},
	{services.ErrWeakPassword, badRequest("Password must be at least 6 characters")},
	{services.ErrUserNotFound, notFound("User not found")},
	{services.ErrCVNotFound, notFound("CV not found")},
	{services.ErrJobPostingNotFound, notFound("Job posting not found")},
	{services.ErrInvalidCVStatus, badRequest("Invalid status")},
	{services.ErrFileRequired, badRequest("No file uploaded")},
	{services.ErrEmptyFile, badRequest("File is empty")},
	{services.ErrFileTooLarge, badRequest("File size too large")},
	{services.ErrUnsupportedFileType, badRequest("Invalid file type. Only PDF, DOC, and DOCX files are allowed")},
	{services.ErrRatingOutOfRange, badRequest("Ratings must be between 1 and 5")},
	{services.ErrDuplicateReview, badRequest("You have already reviewed this CV")},
	{services.ErrJobPostingTitleRequired, badRequest("Title is required")},
	{services.ErrCompanyRequired, badRequest("Company is required")},
	{services.ErrEmailRequired, badRequest("Email is required")},
	{services.ErrInviteEmailRequired, badRequest("Email is required")},
	{services.ErrInvitationTokenRequired, badRequest("Token is required")},
	{services.ErrPendingInvitationExists, badRequest("A pending invitation already exists for this email")},
	{services.ErrInviteInProgress, conflict("An invitation for this email is already being issued")},
	{iauth.ErrInvalidIdentity, func() *appErrors.AppError { return appErrors.ErrUnauthorized }},
}

// mapServiceError translates service sentinels into API errors.
func mapServiceError(err error) error {
	for _, entry := range errorMap {
		if errors.Is(err, entry.target) {
			return entry.build().WithInternal(err)
		}
	}
	return err
}

func badRequest(message string) func() *appErrors.AppError {
	return func() *appErrors.AppError { return appErrors.NewBadRequest(message) }
}

func notFound(message string) func() *appErrors.AppError {
	return func() *appErrors.AppError { return appErrors.NewNotFound(message) }
}

func conflict(message string) func() *appErrors.AppError {
	return func() *appErrors.AppError { return appErrors.NewConflict(message) }
}
