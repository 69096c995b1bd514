package models

const (
	JobPostingOpen   = "OPEN"
	JobPostingClosed = "CLOSED"
)

// JobPosting groups CVs submitted for one opening.
type JobPosting struct {
	BaseModel

	Title       string   `gorm:"not null" json:"title"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	Status      string   `gorm:"not null;size:16;default:OPEN" json:"status"`
	CompanyID   string   `gorm:"type:uuid;not null;index" json:"company_id"`
	Company     *Company `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedByID string   `gorm:"type:uuid" json:"created_by_id"`
}

func (JobPosting) TableName() string { return "job_postings" }
