package services

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/internal/storage"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func sampleDOCX(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   `<?xml version="1.0"?><document/>`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type cvFixture struct {
	db     *gorm.DB
	store  *storage.FilesystemStore
	svc    *CVService
	acme   auth.Identity
	globex auth.Identity
}

func newCVFixture(t *testing.T, opts ...CVOption) cvFixture {
	t.Helper()
	db := openServiceTestDB(t)
	store := storage.NewMemoryStore("/uploads")
	svc, err := NewCVService(db, store, opts...)
	require.NoError(t, err)

	acme := seedCompany(t, db, "Acme")
	globex := seedCompany(t, db, "Globex")
	return cvFixture{
		db:     db,
		store:  store,
		svc:    svc,
		acme:   seedMember(t, db, acme, "alice@acme.com", "Alice Recruiter", models.RoleAdmin),
		globex: seedMember(t, db, globex, "gary@globex.com", "Gary", models.RoleAdmin),
	}
}

func (f cvFixture) upload(t *testing.T, identity auth.Identity, name string) *models.CV {
	t.Helper()
	cv, err := f.svc.Upload(context.Background(), identity, UploadInput{
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(len(samplePDF)),
		Content:     bytes.NewReader(samplePDF),
	})
	require.NoError(t, err)
	return cv
}

func TestCVServiceUploadStoresFileAndRecord(t *testing.T) {
	f := newCVFixture(t)

	cv := f.upload(t, f.acme, "Jane Doe CV.pdf")
	require.Equal(t, "Jane Doe CV.pdf", cv.OriginalName)
	require.Equal(t, models.CVStatusNew, cv.Status)
	require.Equal(t, f.acme.CompanyID, cv.CompanyID)
	require.Equal(t, f.acme.UserID, cv.UploadedByID)
	require.EqualValues(t, len(samplePDF), cv.FileSize)
	require.True(t, strings.HasSuffix(cv.FileName, "_jane-doe-cv.pdf"))
	require.Equal(t, "/uploads/"+cv.FileName, cv.FilePath)

	_, reader, err := f.svc.OpenFile(context.Background(), f.acme, cv.ID)
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, samplePDF, content)
}

func TestCVServiceUploadAcceptsDOCX(t *testing.T) {
	f := newCVFixture(t)
	docx := sampleDOCX(t)

	cv, err := f.svc.Upload(context.Background(), f.acme, UploadInput{
		FileName:    "resume.docx",
		ContentType: "application/octet-stream",
		Size:        int64(len(docx)),
		Content:     bytes.NewReader(docx),
	})
	require.NoError(t, err)
	require.Equal(t, mimeDOCX, cv.FileType)
}

func TestCVServiceUploadRejections(t *testing.T) {
	f := newCVFixture(t, WithMaxUploadBytes(64))

	cases := []struct {
		name  string
		input UploadInput
		want  error
	}{
		{
			name:  "no file",
			input: UploadInput{FileName: "", Content: bytes.NewReader(samplePDF), Size: 10},
			want:  ErrFileRequired,
		},
		{
			name:  "empty",
			input: UploadInput{FileName: "cv.pdf", ContentType: "application/pdf", Content: bytes.NewReader(nil), Size: 0},
			want:  ErrEmptyFile,
		},
		{
			name:  "declared too large",
			input: UploadInput{FileName: "cv.pdf", ContentType: "application/pdf", Content: bytes.NewReader(samplePDF), Size: 65},
			want:  ErrFileTooLarge,
		},
		{
			name:  "actual content too large",
			input: UploadInput{FileName: "cv.pdf", ContentType: "application/pdf", Content: bytes.NewReader(samplePDF), Size: 10},
			want:  ErrFileTooLarge,
		},
		{
			name:  "declared type not allowed",
			input: UploadInput{FileName: "cv.png", ContentType: "image/png", Content: bytes.NewReader(samplePDF), Size: 10},
			want:  ErrUnsupportedFileType,
		},
		{
			name:  "content does not match",
			input: UploadInput{FileName: "cv.pdf", ContentType: "application/pdf", Content: strings.NewReader("just text"), Size: 9},
			want:  ErrUnsupportedFileType,
		},
		{
			name:  "foreign job posting id",
			input: UploadInput{FileName: "cv.pdf", ContentType: "application/pdf", Content: bytes.NewReader(samplePDF), Size: 10, JobPostingID: "7c4a2a7e-1f0b-4a7f-9a59-3e3c5b7e2d10"},
			want:  ErrJobPostingNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), f.acme, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.CV{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCVServiceUploadWithJobPosting(t *testing.T) {
	f := newCVFixture(t)
	postings, err := NewJobPostingService(f.db, nil)
	require.NoError(t, err)

	posting, err := postings.Create(context.Background(), f.acme, JobPostingInput{Title: "Backend Engineer"})
	require.NoError(t, err)

	cv, err := f.svc.Upload(context.Background(), f.acme, UploadInput{
		FileName:     "cv.pdf",
		ContentType:  "application/pdf",
		Size:         int64(len(samplePDF)),
		Content:      bytes.NewReader(samplePDF),
		JobPostingID: posting.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, cv.JobPostingID)
	require.Equal(t, posting.ID, *cv.JobPostingID)

	_, err = f.svc.Upload(context.Background(), f.globex, UploadInput{
		FileName:     "cv.pdf",
		ContentType:  "application/pdf",
		Size:         int64(len(samplePDF)),
		Content:      bytes.NewReader(samplePDF),
		JobPostingID: posting.ID,
	})
	require.ErrorIs(t, err, ErrJobPostingNotFound)

	page, err := f.svc.List(context.Background(), f.acme, CVListOptions{JobPostingID: posting.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestCVServiceListFiltersAndPaginates(t *testing.T) {
	f := newCVFixture(t)

	first := f.upload(t, f.acme, "Zed Zimmer.pdf")
	f.upload(t, f.acme, "Yara Young.pdf")
	third := f.upload(t, f.acme, "Xavier Xu.pdf")
	f.upload(t, f.globex, "Other Tenant.pdf")

	_, err := f.svc.UpdateStatus(context.Background(), f.acme, third.ID, models.CVStatusShortlisted)
	require.NoError(t, err)

	reviews, err := NewReviewService(f.db, nil)
	require.NoError(t, err)
	_, err = reviews.Create(context.Background(), f.acme, first.ID, ReviewInput{Rating: 4, Skills: 4, Experience: 3, Fit: 5})
	require.NoError(t, err)

	page, err := f.svc.List(context.Background(), f.acme, CVListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.EqualValues(t, 1, page.Pages)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.Limit)
	require.Len(t, page.Items, 3)
	for _, item := range page.Items {
		require.Equal(t, f.acme.CompanyID, item.CompanyID)
		if item.ID == first.ID {
			require.NotNil(t, item.AvgRating)
			require.Equal(t, 4.0, *item.AvgRating)
			require.EqualValues(t, 1, item.ReviewCount)
		} else {
			require.Nil(t, item.AvgRating)
			require.Zero(t, item.ReviewCount)
		}
	}

	page, err = f.svc.List(context.Background(), f.acme, CVListOptions{Status: "shortlisted"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, third.ID, page.Items[0].ID)

	page, err = f.svc.List(context.Background(), f.acme, CVListOptions{Status: "ALL", Search: "yara"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Yara Young.pdf", page.Items[0].OriginalName)

	page, err = f.svc.List(context.Background(), f.acme, CVListOptions{Search: "recruiter"})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)

	page, err = f.svc.List(context.Background(), f.acme, CVListOptions{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.EqualValues(t, 2, page.Pages)
	require.Len(t, page.Items, 1)

	_, err = f.svc.List(context.Background(), f.acme, CVListOptions{Status: "ARCHIVED"})
	require.ErrorIs(t, err, ErrInvalidCVStatus)
}

func TestCVServiceTenantIsolation(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "secret.pdf")

	_, err := f.svc.Get(context.Background(), f.globex, cv.ID)
	require.ErrorIs(t, err, ErrCVNotFound)

	_, err = f.svc.UpdateStatus(context.Background(), f.globex, cv.ID, models.CVStatusRejected)
	require.ErrorIs(t, err, ErrCVNotFound)

	_, _, err = f.svc.OpenFile(context.Background(), f.globex, cv.ID)
	require.ErrorIs(t, err, ErrCVNotFound)

	var stored models.CV
	require.NoError(t, f.db.First(&stored, "id = ?", cv.ID).Error)
	require.Equal(t, models.CVStatusNew, stored.Status)

	_, err = f.svc.Get(context.Background(), f.acme, "not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestCVServiceUpdateStatus(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	// Any status may follow any other.
	for _, status := range []string{models.CVStatusRejected, models.CVStatusNew, models.CVStatusAccepted} {
		updated, err := f.svc.UpdateStatus(context.Background(), f.acme, cv.ID, status)
		require.NoError(t, err)
		require.Equal(t, status, updated.Status)
		require.Equal(t, "candidate.pdf", updated.OriginalName)
	}

	_, err := f.svc.UpdateStatus(context.Background(), f.acme, cv.ID, "HIRED")
	require.ErrorIs(t, err, ErrInvalidCVStatus)
}

func TestCVServiceGetIncludesReviewAverages(t *testing.T) {
	f := newCVFixture(t)
	cv := f.upload(t, f.acme, "candidate.pdf")

	detail, err := f.svc.Get(context.Background(), f.acme, cv.ID)
	require.NoError(t, err)
	require.Zero(t, detail.ReviewCount)
	require.Nil(t, detail.Averages.Rating)
	require.Nil(t, detail.Averages.Skills)
	require.Nil(t, detail.Averages.Experience)
	require.Nil(t, detail.Averages.Fit)

	company := models.Company{}
	require.NoError(t, f.db.First(&company, "id = ?", f.acme.CompanyID).Error)
	reviewers := []auth.Identity{
		f.acme,
		seedMember(t, f.db, &company, "bob@acme.com", "Bob", models.RoleUser),
		seedMember(t, f.db, &company, "cara@acme.com", "Cara", models.RoleUser),
	}
	reviewSvc, err := NewReviewService(f.db, nil)
	require.NoError(t, err)
	for i, rating := range []int{5, 3, 4} {
		_, err := reviewSvc.Create(context.Background(), reviewers[i], cv.ID, ReviewInput{Rating: rating, Skills: 2, Experience: 3, Fit: rating})
		require.NoError(t, err)
	}

	detail, err = f.svc.Get(context.Background(), f.acme, cv.ID)
	require.NoError(t, err)
	require.Equal(t, 3, detail.ReviewCount)
	require.Len(t, detail.CV.Reviews, 3)
	require.NotNil(t, detail.CV.Reviews[0].Reviewer)
	require.Equal(t, 4.0, *detail.Averages.Rating)
	require.Equal(t, 2.0, *detail.Averages.Skills)
	require.Equal(t, 3.0, *detail.Averages.Experience)
	require.Equal(t, 4.0, *detail.Averages.Fit)
}

func TestComputeAveragesRounding(t *testing.T) {
	averages := ComputeAverages([]models.CVReview{
		{Rating: 5, Skills: 4, Experience: 1, Fit: 2},
		{Rating: 4, Skills: 4, Experience: 2, Fit: 2},
		{Rating: 4, Skills: 5, Experience: 2, Fit: 3},
	})
	require.Equal(t, 4.3, *averages.Rating)
	require.Equal(t, 4.3, *averages.Skills)
	require.Equal(t, 1.7, *averages.Experience)
	require.Equal(t, 2.3, *averages.Fit)

	empty := ComputeAverages(nil)
	require.Nil(t, empty.Rating)
}

type failingCreateStore struct {
	*storage.FilesystemStore
	deleted []string
}

func (s *failingCreateStore) Delete(ctx context.Context, locator string) error {
	s.deleted = append(s.deleted, locator)
	return s.FilesystemStore.Delete(ctx, locator)
}

func TestCVServiceRemovesObjectWhenInsertFails(t *testing.T) {
	db := openServiceTestDB(t)
	store := &failingCreateStore{FilesystemStore: storage.NewMemoryStore("/uploads")}
	svc, err := NewCVService(db, store)
	require.NoError(t, err)

	company := seedCompany(t, db, "Acme")
	identity := seedMember(t, db, company, "alice@acme.com", "Alice", models.RoleAdmin)

	require.NoError(t, db.Migrator().DropTable(&models.CVReview{}, &models.CV{}))

	_, err = svc.Upload(context.Background(), identity, UploadInput{
		FileName:    "cv.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(samplePDF)),
		Content:     bytes.NewReader(samplePDF),
	})
	require.Error(t, err)
	require.Len(t, store.deleted, 1)

	_, err = store.Open(context.Background(), store.deleted[0])
	require.ErrorIs(t, err, storage.ErrNotFound)
}
