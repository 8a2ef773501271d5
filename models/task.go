package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses. A flat enum: any status may be set to any other by a user
// holding change permission.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusReview     = "REVIEW"
	StatusDone       = "DONE"
)

// TaskStatuses lists every valid task status.
var TaskStatuses = []string{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Task represents a work item within a team
type Task struct {
	gorm.Model
	Title        string     `gorm:"not null;index:idx_team_status,priority:3" json:"title"`
	Description  string     `json:"description"`
	TeamID       uint       `gorm:"not null;index:idx_team_status,priority:1" json:"team_id"`
	CreatedByID  uint       `gorm:"not null;index" json:"created_by_id"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to_id,omitempty"`
	Status       string     `gorm:"default:'TODO';index:idx_team_status,priority:2" json:"status"`
	Deadline     *time.Time `json:"deadline,omitempty"`

	// Relations
	Team         Team          `json:"-"`
	CreatedBy    User          `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	AssignedTo   *User         `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Comments     []Comment     `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	ActivityLogs []ActivityLog `gorm:"foreignKey:TaskID" json:"activity_logs,omitempty"`
}

// ValidStatus reports whether s is a recognized task status.
func ValidStatus(s string) bool {
	for _, status := range TaskStatuses {
		if s == status {
			return true
		}
	}
	return false
}
