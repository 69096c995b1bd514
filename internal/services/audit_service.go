package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/auditctx"
	"github.com/charlesng35/hrmatrix/internal/auth"
	"github.com/charlesng35/hrmatrix/internal/models"
	"github.com/charlesng35/hrmatrix/pkg/logger"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditEntry is one event to persist. CompanyID and UserID may be empty for events raised
// before a tenant exists.
type AuditEntry struct {
	CompanyID string
	UserID    string
	Actor     string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditFilters narrows a listing. Zero values are ignored.
type AuditFilters struct {
	CompanyID string
	UserID    string
	Action    string
	Result    string
	Since     *time.Time
	Until     *time.Time
}

type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService writes the audit trail and serves it back per company.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	row, err := entry.toModel()
	if err != nil {
		return err
	}
	return s.db.WithContext(ensureContext(ctx)).Create(&row).Error
}

func (e AuditEntry) toModel() (models.AuditLog, error) {
	action, result := strings.TrimSpace(e.Action), strings.TrimSpace(e.Result)
	switch {
	case action == "":
		return models.AuditLog{}, errors.New("audit service: action is required")
	case result == "":
		return models.AuditLog{}, errors.New("audit service: result is required")
	}

	row := models.AuditLog{
		CompanyID: optionalID(e.CompanyID),
		UserID:    optionalID(e.UserID),
		Actor:     strings.TrimSpace(e.Actor),
		Action:    action,
		Resource:  strings.TrimSpace(e.Resource),
		Result:    result,
		IPAddress: strings.TrimSpace(e.IPAddress),
		UserAgent: strings.TrimSpace(e.UserAgent),
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return models.AuditLog{}, fmt.Errorf("audit service: encode metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return row, nil
}

// List returns one page of entries, newest first, and the total matching the filters.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	page, size := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxAuditPageSize {
		size = defaultAuditPageSize
	}

	base := s.db.WithContext(ensureContext(ctx)).Model(&models.AuditLog{}).Scopes(auditFilterScope(opts.Filters))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count: %w", err)
	}

	var rows []models.AuditLog
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list: %w", err)
	}
	return rows, total, nil
}

// ListForCompany is List pinned to the caller's tenant. Filters naming another company
// are overridden.
func (s *AuditService) ListForCompany(ctx context.Context, identity auth.Identity, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	if identity.CompanyID == "" {
		return nil, 0, auth.ErrInvalidIdentity
	}
	opts.Filters.CompanyID = identity.CompanyID
	return s.List(ctx, opts)
}

// CleanupOlderThan deletes entries created more than retentionDays ago.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func auditFilterScope(f AuditFilters) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		for column, value := range map[string]string{
			"company_id": f.CompanyID,
			"user_id":    f.UserID,
			"action":     f.Action,
			"result":     f.Result,
		} {
			if value != "" {
				q = q.Where(column+" = ?", value)
			}
		}
		if f.Since != nil {
			q = q.Where("created_at >= ?", f.Since.UTC())
		}
		if f.Until != nil {
			q = q.Where("created_at <= ?", f.Until.UTC())
		}
		return q
	}
}

// recordAudit persists entry, filling the request origin from ctx. Failures are logged and
// never reach the caller.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if origin, ok := auditctx.FromContext(ctx); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = origin.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = origin.UserAgent
		}
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
	}
}

func auditFor(identity auth.Identity, action, resource, result string) AuditEntry {
	return AuditEntry{
		CompanyID: identity.CompanyID,
		UserID:    identity.UserID,
		Actor:     identity.Email,
		Action:    action,
		Resource:  resource,
		Result:    result,
	}
}

func optionalID(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}
