package models

import "gorm.io/datatypes"

const (
	AuditResultSuccess = "success"
	AuditResultFailure = "failure"
)

type AuditLog struct {
	BaseModel

	CompanyID *string        `gorm:"type:uuid;index" json:"company_id,omitempty"`
	UserID    *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Actor     string         `json:"actor"`
	Action    string         `gorm:"not null;index" json:"action"`
	Resource  string         `gorm:"index" json:"resource"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}
