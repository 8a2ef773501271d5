package models

import "gorm.io/gorm"

// Comment represents a threaded comment on a task. A comment with a parent is
// a reply; replies are deleted together with their parent.
type Comment struct {
	gorm.Model
	TaskID   uint   `gorm:"not null;index:idx_task_parent,priority:1" json:"task_id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Content  string `gorm:"not null" json:"content"`
	ParentID *uint  `gorm:"index:idx_task_parent,priority:2" json:"parent_id,omitempty"`

	// Relations
	Task    Task      `json:"-"`
	Author  User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Replies []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
}
