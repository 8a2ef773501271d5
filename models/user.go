package models

import (
	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Username      string `gorm:"uniqueIndex;not null" json:"username"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Google OAuth fields
	GoogleID *string `gorm:"uniqueIndex" json:"google_id,omitempty"`

	// Profile information
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:1" json:"-"`

	// Relations
	TeamMemberships []TeamMembership `gorm:"foreignKey:UserID" json:"team_memberships,omitempty"`
	CreatedTasks    []Task           `gorm:"foreignKey:CreatedByID" json:"created_tasks,omitempty"`
	Notifications   []Notification   `gorm:"foreignKey:RecipientID" json:"notifications,omitempty"`
}
