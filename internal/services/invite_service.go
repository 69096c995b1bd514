package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/cache"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/crypto"
	"github.com/charlesng35/hrmatrix/pkg/logger"
	"github.com/charlesng35/hrmatrix/pkg/mail"
	"github.com/charlesng35/hrmatrix/pkg/metrics"
)

const (
	defaultInviteExpiry     = 24 * time.Hour
	defaultInviteTokenBytes = 32
	defaultInviteAcceptPath = "/signup/invite"

	inviteLockTTL   = 10 * time.Second
	inviteLockWait  = 2 * time.Second
	inviteLockRetry = 50 * time.Millisecond
)

var (
	// ErrInvitationInvalid is the class of every unusable token: unknown, consumed or expired.
	ErrInvitationInvalid = errors.New("invite: invalid invitation")
	// ErrInvitationNotFound indicates no invitation matches the provided token.
	ErrInvitationNotFound = fmt.Errorf("%w: not found", ErrInvitationInvalid)
	// ErrInvitationExpired indicates the invitation is past its expiry.
	ErrInvitationExpired = fmt.Errorf("%w: expired", ErrInvitationInvalid)
	// ErrInvitationAccepted indicates the invitation has already been redeemed.
	ErrInvitationAccepted = fmt.Errorf("%w: already accepted", ErrInvitationInvalid)

	// ErrInvitationTokenRequired indicates an empty token.
	ErrInvitationTokenRequired = errors.New("invite: token is required")
	// ErrInviteEmailRequired indicates an empty invitee address.
	ErrInviteEmailRequired = errors.New("invite: email is required")
	// ErrPendingInvitationExists indicates an unexpired invitation for the address is outstanding.
	ErrPendingInvitationExists = errors.New("invite: pending invitation already exists")
	// ErrInviteInProgress indicates another issuer holds the lock for the same address.
	ErrInviteInProgress = errors.New("invite: another invitation for this address is being issued")
	// ErrRedemptionFailed indicates the redemption transaction was rolled back.
	ErrRedemptionFailed = errors.New("invite: redemption failed")
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to create invite hyperlinks.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithInviteAcceptPath overrides the path of the invitation acceptance page.
func WithInviteAcceptPath(path string) InviteOption {
	return func(s *InviteService) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		s.acceptPath = path
	}
}

// WithInviteExpiry overrides the invite token lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InviteService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInviteLocker serialises concurrent issues for the same company and address.
func WithInviteLocker(locker cache.Locker) InviteOption {
	return func(s *InviteService) {
		s.locker = locker
	}
}

// WithBlockDuplicatePending toggles rejection of a second pending invitation for an address.
func WithBlockDuplicatePending(block bool) InviteOption {
	return func(s *InviteService) {
		s.blockDuplicatePending = block
	}
}

// WithInviteAudit records issue and accept events.
func WithInviteAudit(audit *AuditService) InviteOption {
	return func(s *InviteService) {
		s.audit = audit
	}
}

// InviteService manages generation and consumption of company invitations.
type InviteService struct {
	db                    *gorm.DB
	mailer                mail.Mailer
	audit                 *AuditService
	locker                cache.Locker
	baseURL               string
	acceptPath            string
	expiry                time.Duration
	tokenLength           int
	blockDuplicatePending bool
	now                   func() time.Time
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, mailer mail.Mailer, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:                    db,
		mailer:                mailer,
		acceptPath:            defaultInviteAcceptPath,
		expiry:                defaultInviteExpiry,
		tokenLength:           defaultInviteTokenBytes,
		blockDuplicatePending: true,
		now:                   time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueInviteInput describes a new invitation.
type IssueInviteInput struct {
	Email string
	Role  string
}

// IssuedInvite is the outcome of Issue. Token is only available here; it is never persisted.
type IssuedInvite struct {
	Invitation *models.Invitation
	Token      string
	Link       string
	// Delivered is false when the email could not be sent; Warning then explains why.
	Delivered bool
	Warning   string
}

// InvitationDetails is the public view of a redeemable invitation.
type InvitationDetails struct {
	Email       string
	Role        string
	CompanyName string
	ExpiresAt   time.Time
}

// RedeemInput carries the new account details for an invitation.
type RedeemInput struct {
	Token    string
	Name     string
	Password string
}

// Issue creates an invitation in the inviter's company and emails the redemption link. Email
// delivery is best effort: failures never roll back the invitation and are reported through
// IssuedInvite.Warning.
func (s *InviteService) Issue(ctx context.Context, inviter auth.Identity, input IssueInviteInput) (*IssuedInvite, error) {
	ctx = ensureContext(ctx)

	if err := inviter.Validate(); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(input.Email)
	if email == "" {
		return nil, ErrInviteEmailRequired
	}
	role := models.NormalizeRole(input.Role)

	release, err := s.acquire(ctx, "invite:"+inviter.CompanyID+":"+email)
	if err != nil {
		return nil, err
	}
	defer release()

	rawToken, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	now := s.now().UTC()
	inviterID := inviter.UserID
	invite := models.Invitation{
		Email:       email,
		TokenHash:   crypto.HashToken(rawToken),
		CompanyID:   inviter.CompanyID,
		Role:        role,
		Status:      models.InvitationPending,
		InvitedByID: &inviterID,
		ExpiresAt:   now.Add(s.expiry),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).
			Where("email = ? AND company_id = ?", email, inviter.CompanyID).
			Count(&users).Error; err != nil {
			return fmt.Errorf("invite service: check user: %w", err)
		}
		if users > 0 {
			return ErrUserAlreadyExists
		}

		if s.blockDuplicatePending {
			var pending int64
			if err := tx.Model(&models.Invitation{}).
				Where("email = ? AND company_id = ? AND status = ? AND expires_at > ?",
					email, inviter.CompanyID, models.InvitationPending, now).
				Count(&pending).Error; err != nil {
				return fmt.Errorf("invite service: check pending: %w", err)
			}
			if pending > 0 {
				return ErrPendingInvitationExists
			}
		}

		if err := tx.Create(&invite).Error; err != nil {
			return fmt.Errorf("invite service: create invite: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) || errors.Is(err, ErrPendingInvitationExists) {
			metrics.Invitations.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	metrics.Invitations.WithLabelValues("issued").Inc()

	var company models.Company
	if err := s.db.WithContext(ctx).Select("id", "name").First(&company, "id = ?", inviter.CompanyID).Error; err == nil {
		invite.Company = &company
	}

	result := &IssuedInvite{
		Invitation: &invite,
		Token:      rawToken,
		Link:       s.inviteLink(rawToken),
	}

	if sendErr := s.send(ctx, inviter, &invite, result.Link); sendErr != nil {
		metrics.Invitations.WithLabelValues("email_failed").Inc()
		result.Warning = deliveryWarning(sendErr)
		logger.WithModule("invites").Warn("invitation email not delivered",
			zap.String("invitation_id", invite.ID),
			zap.String("company_id", invite.CompanyID),
			zap.Error(sendErr),
		)
	} else {
		result.Delivered = true
	}

	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: inviter.CompanyID,
		UserID:    inviter.UserID,
		Actor:     inviter.Email,
		Action:    "invitation.issue",
		Resource:  "invitation:" + invite.ID,
		Result:    models.AuditResultSuccess,
		Metadata: map[string]any{
			"email":     email,
			"role":      role,
			"delivered": result.Delivered,
		},
	})

	return result, nil
}

// Validate resolves a token to its invitation without changing it.
func (s *InviteService) Validate(ctx context.Context, token string) (*InvitationDetails, error) {
	ctx = ensureContext(ctx)

	invite, err := s.lookup(s.db.WithContext(ctx).Preload("Company"), token)
	if err != nil {
		return nil, err
	}

	details := &InvitationDetails{
		Email:     invite.Email,
		Role:      invite.Role,
		ExpiresAt: invite.ExpiresAt,
	}
	if invite.Company != nil {
		details.CompanyName = invite.Company.Name
	}
	return details, nil
}

// Redeem creates the invited user and consumes the invitation in one transaction. Of two
// concurrent redemptions of the same token at most one succeeds; the other observes the
// invitation as consumed.
func (s *InviteService) Redeem(ctx context.Context, input RedeemInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if len([]rune(name)) < 2 {
		return nil, ErrInvalidName
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	invite, err := s.lookup(s.db.WithContext(ctx), input.Token)
	if err != nil {
		metrics.Invitations.WithLabelValues("rejected").Inc()
		return nil, err
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("invite service: hash password: %w", err)
	}

	user := models.User{
		Email:        invite.Email,
		Name:         name,
		PasswordHash: hashed,
		CompanyID:    invite.CompanyID,
		Role:         models.NormalizeRole(invite.Role),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now().UTC()

		// The status predicate makes the update the single point of consumption.
		consumed := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", invite.ID, models.InvitationPending, now).
			Updates(map[string]any{
				"status":      models.InvitationAccepted,
				"accepted_at": now,
			})
		if consumed.Error != nil {
			return fmt.Errorf("%w: %w", ErrRedemptionFailed, consumed.Error)
		}
		if consumed.RowsAffected == 0 {
			return s.classifyUnredeemable(tx, invite.ID, now)
		}

		var existing int64
		if err := tx.Model(&models.User{}).
			Where("email = ? AND company_id = ?", invite.Email, invite.CompanyID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrRedemptionFailed, err)
		}
		if existing > 0 {
			return ErrUserAlreadyExists
		}

		if err := tx.Create(&user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrUserAlreadyExists
			}
			return fmt.Errorf("%w: %w", ErrRedemptionFailed, err)
		}
		return nil
	})
	if err != nil {
		metrics.Invitations.WithLabelValues("rejected").Inc()
		logger.WithModule("invites").Warn("invitation redemption rolled back",
			zap.String("invitation_id", invite.ID),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.Invitations.WithLabelValues("accepted").Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		CompanyID: user.CompanyID,
		UserID:    user.ID,
		Actor:     user.Email,
		Action:    "invitation.accept",
		Resource:  "invitation:" + invite.ID,
		Result:    models.AuditResultSuccess,
		Metadata:  map[string]any{"role": user.Role},
	})

	return &user, nil
}

// List returns the company's invitations, newest first.
func (s *InviteService) List(ctx context.Context, identity auth.Identity) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)

	var invites []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("company_id = ?", identity.CompanyID).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite service: list invites: %w", err)
	}
	return invites, nil
}

// CountPending returns the number of unexpired pending invitations across all companies.
func (s *InviteService) CountPending(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("status = ? AND expires_at > ?", models.InvitationPending, s.now().UTC()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("invite service: count pending: %w", err)
	}
	return count, nil
}

// Now reports the service clock, used to derive display status.
func (s *InviteService) Now() time.Time {
	return s.now().UTC()
}

func (s *InviteService) lookup(db *gorm.DB, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationTokenRequired
	}

	var invite models.Invitation
	if err := db.Where("token_hash = ?", crypto.HashToken(token)).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}

	if invite.Status == models.InvitationAccepted {
		return nil, ErrInvitationAccepted
	}
	if invite.IsExpired(s.now().UTC()) {
		return nil, ErrInvitationExpired
	}
	if invite.Status != models.InvitationPending {
		return nil, ErrInvitationNotFound
	}
	return &invite, nil
}

func (s *InviteService) classifyUnredeemable(tx *gorm.DB, id string, now time.Time) error {
	var current models.Invitation
	if err := tx.Select("id", "status", "expires_at").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("%w: %w", ErrRedemptionFailed, err)
	}
	if current.Status == models.InvitationAccepted {
		return ErrInvitationAccepted
	}
	if current.IsExpired(now) {
		return ErrInvitationExpired
	}
	return ErrInvitationNotFound
}

// acquire takes the distributed issue lock when a locker is configured.
func (s *InviteService) acquire(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	deadline := time.Now().Add(inviteLockWait)
	for {
		token, ok, err := s.locker.TryLock(ctx, key, inviteLockTTL)
		if err != nil {
			// The database checks still guard correctness without the lock.
			logger.WithModule("invites").Warn("invite lock unavailable", zap.Error(err))
			return func() {}, nil
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := s.locker.Release(releaseCtx, key, token); err != nil {
					logger.WithModule("invites").Warn("invite lock release failed", zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrInviteInProgress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(inviteLockRetry):
		}
	}
}

func (s *InviteService) send(ctx context.Context, inviter auth.Identity, invite *models.Invitation, link string) error {
	if s.mailer == nil {
		return mail.ErrSMTPDisabled
	}

	companyName := ""
	if invite.Company != nil {
		companyName = invite.Company.Name
	}

	message := mail.Message{
		ReplyTo:  inviter.Email,
		To:       []string{invite.Email},
		Subject:  inviteSubject(companyName),
		Body:     s.inviteBody(inviter, companyName, link),
		HTMLBody: s.inviteHTML(inviter, companyName, link),
	}
	return s.mailer.Send(ctx, message)
}

func (s *InviteService) inviteLink(token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, s.acceptPath, token)
}

func (s *InviteService) inviteBody(inviter auth.Identity, companyName, link string) string {
	from := strings.TrimSpace(inviter.Name)
	if from == "" {
		from = inviter.Email
	}
	if companyName == "" {
		companyName = "their team"
	}
	return fmt.Sprintf("Hello,\n\n%s has invited you to join %s on HRMatrix. Use the following link to create your account:\n%s\n\nThe link expires in %s. If you did not expect this email, you can ignore it.\n",
		from, companyName, link, humanDuration(s.expiry))
}

func (s *InviteService) inviteHTML(inviter auth.Identity, companyName, link string) string {
	from := strings.TrimSpace(inviter.Name)
	if from == "" {
		from = inviter.Email
	}
	if companyName == "" {
		companyName = "their team"
	}
	return fmt.Sprintf(`<p>Hello,</p><p>%s has invited you to join <strong>%s</strong> on HRMatrix.</p><p><a href="%s">Create your account</a></p><p>The link expires in %s. If you did not expect this email, you can ignore it.</p>`,
		html.EscapeString(from), html.EscapeString(companyName), html.EscapeString(link), humanDuration(s.expiry))
}

func inviteSubject(companyName string) string {
	if companyName == "" {
		return "You're invited to HRMatrix"
	}
	return fmt.Sprintf("You're invited to join %s on HRMatrix", companyName)
}

func deliveryWarning(err error) string {
	if errors.Is(err, mail.ErrSMTPDisabled) {
		return "Email delivery is not configured. Share the invitation link manually."
	}
	return "The invitation was created but the email could not be sent. Share the invitation link manually."
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
