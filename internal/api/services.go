package api

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/app"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/services"
	"github.com/charlesng35/hrmatrix/internal/storage"
	"github.com/charlesng35/hrmatrix/pkg/mail"
)

// Services groups the domain services served by the router.
type Services struct {
	Audit       *services.AuditService
	Signup      *services.SignupService
	Users       *services.UserService
	Invites     *services.InviteService
	CVs         *services.CVService
	Reviews     *services.ReviewService
	JobPostings *services.JobPostingService
}

// ServiceOptions carries the collaborators that differ between production and tests.
type ServiceOptions struct {
	Store  storage.Store
	Mailer mail.Mailer
	Locker cache.Locker
	// Clock overrides the invitation clock; nil uses time.Now.
	Clock func() time.Time
}

// NewServices constructs every domain service over one database handle.
func NewServices(db *gorm.DB, cfg *app.Config, opts ServiceOptions) (*Services, error) {
	if db == nil {
		return nil, errors.New("database handle must be provided")
	}
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if opts.Store == nil {
		return nil, errors.New("file store must be provided")
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	signup, err := services.NewSignupService(db, audit)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, audit)
	if err != nil {
		return nil, err
	}

	inviteOpts := []services.InviteOption{
		services.WithInviteBaseURL(cfg.Server.BaseURL),
		services.WithInviteAcceptPath(cfg.Invitations.AcceptPath),
		services.WithInviteExpiry(cfg.Invitations.Expiry),
		services.WithInviteTokenSize(cfg.Invitations.TokenBytes),
		services.WithBlockDuplicatePending(cfg.Invitations.BlockDuplicatePending),
		services.WithInviteAudit(audit),
	}
	if opts.Locker != nil {
		inviteOpts = append(inviteOpts, services.WithInviteLocker(opts.Locker))
	}
	if opts.Clock != nil {
		inviteOpts = append(inviteOpts, services.WithInviteClock(opts.Clock))
	}
	invites, err := services.NewInviteService(db, opts.Mailer, inviteOpts...)
	if err != nil {
		return nil, err
	}

	cvs, err := services.NewCVService(db, opts.Store,
		services.WithMaxUploadBytes(cfg.Storage.MaxUploadBytes),
		services.WithCVAudit(audit),
	)
	if err != nil {
		return nil, err
	}
	reviews, err := services.NewReviewService(db, audit)
	if err != nil {
		return nil, err
	}
	postings, err := services.NewJobPostingService(db, audit)
	if err != nil {
		return nil, err
	}

	return &Services{
		Audit:       audit,
		Signup:      signup,
		Users:       users,
		Invites:     invites,
		CVs:         cvs,
		Reviews:     reviews,
		JobPostings: postings,
	}, nil
}
