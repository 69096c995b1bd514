package models

const (
	CVStatusNew         = "NEW"
	CVStatusInReview    = "IN_REVIEW"
	CVStatusShortlisted = "SHORTLISTED"
	CVStatusInterviewed = "INTERVIEWED"
	CVStatusAccepted    = "ACCEPTED"
	CVStatusRejected    = "REJECTED"
)

// CVStatuses lists every pipeline status. Any status may follow any other.
var CVStatuses = []string{
	CVStatusNew,
	CVStatusInReview,
	CVStatusShortlisted,
	CVStatusInterviewed,
	CVStatusAccepted,
	CVStatusRejected,
}

// IsValidCVStatus reports set membership only.
func IsValidCVStatus(status string) bool {
	for _, candidate := range CVStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

// CV is an uploaded candidate document in a company's pipeline.
type CV struct {
	BaseModel

	FileName     string `gorm:"not null" json:"file_name"`
	OriginalName string `gorm:"not null;index" json:"original_name"`
	FileSize     int64  `gorm:"not null" json:"file_size"`
	FileType     string `gorm:"not null;size:128" json:"file_type"`
	FilePath     string `gorm:"not null" json:"file_path"`

	CompanyID    string      `gorm:"type:uuid;not null;index" json:"company_id"`
	Company      *Company    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UploadedByID string      `gorm:"type:uuid;not null;index" json:"uploaded_by_id"`
	UploadedBy   *User       `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	JobPostingID *string     `gorm:"type:uuid;index" json:"job_posting_id,omitempty"`
	JobPosting   *JobPosting `gorm:"constraint:OnDelete:SET NULL" json:"job_posting,omitempty"`

	Status string `gorm:"not null;size:32;default:NEW;index" json:"status"`

	Reviews []CVReview `gorm:"foreignKey:CVID" json:"reviews,omitempty"`
}

func (CV) TableName() string { return "cvs" }
