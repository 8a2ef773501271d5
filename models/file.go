package models

import "gorm.io/gorm"

// Attachment target types for FileUpload, Notification and ObjectPermission
// polymorphic references.
const (
	TargetTask    = "task"
	TargetComment = "comment"
	TargetTeam    = "team"
)

// FileUpload represents a file attached to a task or a comment. The physical
// file lives under the configured upload directory at StoredPath; deleting the
// owning object deletes the row and the stored file.
type FileUpload struct {
	gorm.Model
	FileName     string `gorm:"not null" json:"file_name"`
	StoredPath   string `gorm:"not null" json:"-"`
	Size         int64  `json:"size"`
	UploadedByID uint   `gorm:"not null;index" json:"uploaded_by_id"`

	TargetType string `gorm:"not null;index:idx_file_target,priority:1" json:"target_type"` // task, comment
	TargetID   uint   `gorm:"not null;index:idx_file_target,priority:2" json:"target_id"`

	// Relations
	UploadedBy User `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}
