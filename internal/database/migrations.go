package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/hrmatrix/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. Order follows the
// foreign key graph.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Invitation{},
		&models.JobPosting{},
		&models.CV{},
		&models.CVReview{},
		&models.AuditLog{},
	)
}
