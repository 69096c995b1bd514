package models

import "gorm.io/datatypes"

// Company is the root of tenancy. Every user, invitation, CV and job posting belongs to one.
type Company struct {
	BaseModel

	Name     string         `gorm:"not null;uniqueIndex;size:255" json:"name"`
	Settings datatypes.JSON `json:"settings,omitempty"`

	Users []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
}
