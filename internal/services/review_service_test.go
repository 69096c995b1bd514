package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/hrmatrix/internal/models"
)

func TestReviewServiceCreate(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	svc, err := NewReviewService(f.db, nil)
	require.NoError(t, err)

	comments := "  strong Go background  "
	review, err := svc.Create(context.Background(), f.acme, cv.ID, ReviewInput{
		Rating: 5, Skills: 4, Experience: 3, Fit: 5, Comments: &comments,
	})
	require.NoError(t, err)
	require.Equal(t, models.ReviewStatusCompleted, review.Status)
	require.NotNil(t, review.Comments)
	require.Equal(t, "strong Go background", *review.Comments)
	require.NotNil(t, review.Reviewer)
	require.Equal(t, "Alice Recruiter", review.Reviewer.Name)

	blank := "   "
	company := models.Company{}
	require.NoError(t, f.db.First(&company, "id = ?", f.acme.CompanyID).Error)
	colleague := seedMember(t, f.db, &company, "bob@acme.com", "Bob", models.RoleUser)
	second, err := svc.Create(context.Background(), colleague, cv.ID, ReviewInput{
		Rating: 3, Skills: 3, Experience: 3, Fit: 3, Comments: &blank,
	})
	require.NoError(t, err)
	require.Nil(t, second.Comments)
}

func TestReviewServiceRejectsDuplicateRegardlessOfScores(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	svc, err := NewReviewService(f.db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), f.acme, cv.ID, ReviewInput{Rating: 5, Skills: 5, Experience: 5, Fit: 5})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), f.acme, cv.ID, ReviewInput{Rating: 1, Skills: 2, Experience: 3, Fit: 4})
	require.ErrorIs(t, err, ErrDuplicateReview)

	var count int64
	require.NoError(t, f.db.Model(&models.CVReview{}).Where("cv_id = ?", cv.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestReviewServiceValidation(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	svc, err := NewReviewService(f.db, nil)
	require.NoError(t, err)

	for _, input := range []ReviewInput{
		{Rating: 0, Skills: 3, Experience: 3, Fit: 3},
		{Rating: 3, Skills: 6, Experience: 3, Fit: 3},
		{Rating: 3, Skills: 3, Experience: -1, Fit: 3},
		{Rating: 3, Skills: 3, Experience: 3, Fit: 9},
	} {
		_, err := svc.Create(context.Background(), f.acme, cv.ID, input)
		require.ErrorIs(t, err, ErrRatingOutOfRange)
	}

	_, err = svc.Create(context.Background(), f.acme, "42", ReviewInput{Rating: 3, Skills: 3, Experience: 3, Fit: 3})
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestReviewServiceTenantScoped(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	svc, err := NewReviewService(f.db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), f.globex, cv.ID, ReviewInput{Rating: 3, Skills: 3, Experience: 3, Fit: 3})
	require.ErrorIs(t, err, ErrCVNotFound)
}
