package permissions

import "github.com/charlesng35/hrmatrix/internal/models"

const (
	CVView           = "cv.view"
	CVUpload         = "cv.upload"
	CVReview         = "cv.review"
	CVStatus         = "cv.status"
	ProfileUpdate    = "profile.update"
	TeamView         = "team.view"
	InviteCreate     = "invite.create"
	JobPostingView   = "jobposting.view"
	JobPostingManage = "jobposting.manage"
	AuditView        = "audit.view"
)

func init() {
	perms := []*Permission{
		{
			ID:          CVView,
			Module:      "cv",
			Description: "View the company CV pipeline",
		},
		{
			ID:          CVUpload,
			Module:      "cv",
			DependsOn:   []string{CVView},
			Description: "Upload candidate CVs",
		},
		{
			ID:          CVReview,
			Module:      "cv",
			DependsOn:   []string{CVView},
			Description: "Review and rate CVs",
		},
		{
			ID:          CVStatus,
			Module:      "cv",
			DependsOn:   []string{CVView},
			Description: "Move CVs through the pipeline",
		},
		{
			ID:          ProfileUpdate,
			Module:      "core",
			Description: "Update own profile",
		},
		{
			ID:          TeamView,
			Module:      "core",
			Description: "View the full company roster",
		},
		{
			ID:          InviteCreate,
			Module:      "core",
			DependsOn:   []string{TeamView},
			Description: "Invite new members",
		},
		{
			ID:          AuditView,
			Module:      "core",
			DependsOn:   []string{TeamView},
			Description: "Read the company audit trail",
		},
		{
			ID:          JobPostingView,
			Module:      "jobs",
			Description: "View job postings",
		},
		{
			ID:          JobPostingManage,
			Module:      "jobs",
			DependsOn:   []string{JobPostingView},
			Implies:     []string{JobPostingView},
			Description: "Create and edit job postings",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}

	member := []string{CVView, CVUpload, CVReview, CVStatus, ProfileUpdate, JobPostingView}
	if err := GrantRole(models.RoleUser, member...); err != nil {
		panic(err)
	}
	if err := GrantRole(models.RoleAdmin, append(member, TeamView, InviteCreate, AuditView, JobPostingManage)...); err != nil {
		panic(err)
	}
}
