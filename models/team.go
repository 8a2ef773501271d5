package models

import "gorm.io/gorm"

// Membership roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Team represents a collaboration team
type Team struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CreatedByID uint   `gorm:"not null;index" json:"created_by_id"`

	// Relations
	CreatedBy   User             `gorm:"foreignKey:CreatedByID" json:"-"`
	Memberships []TeamMembership `gorm:"foreignKey:TeamID" json:"memberships,omitempty"`
	Tasks       []Task           `gorm:"foreignKey:TeamID" json:"tasks,omitempty"`
}

// TeamMembership links a user to a team with a role
type TeamMembership struct {
	gorm.Model
	TeamID uint   `gorm:"not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_team_user" json:"user_id"`
	Role   string `gorm:"default:'member'" json:"role"` // owner, member

	// Relations
	Team Team `json:"-"`
	User User `json:"user,omitempty"`
}
