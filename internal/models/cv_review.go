package models

const ReviewStatusCompleted = "COMPLETED"

// CVReview is one reviewer's scoring of a CV. A reviewer scores a CV at most once.
type CVReview struct {
	BaseModel

	CVID       string `gorm:"column:cv_id;type:uuid;not null;uniqueIndex:idx_cv_reviews_cv_reviewer" json:"cv_id"`
	CV         *CV    `gorm:"foreignKey:CVID;constraint:OnDelete:CASCADE" json:"-"`
	ReviewerID string `gorm:"type:uuid;not null;uniqueIndex:idx_cv_reviews_cv_reviewer;index" json:"reviewer_id"`
	Reviewer   *User  `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`

	Rating     int     `gorm:"not null" json:"rating"`
	Skills     int     `gorm:"not null" json:"skills"`
	Experience int     `gorm:"not null" json:"experience"`
	Fit        int     `gorm:"not null" json:"fit"`
	Comments   *string `json:"comments,omitempty"`
	Status     string  `gorm:"not null;size:16;default:COMPLETED" json:"status"`
}

func (CVReview) TableName() string { return "cv_reviews" }
