package models

import "gorm.io/gorm"

// Object-level permissions. Grants are scoped to one record instance and live
// in this side table; they are written in the same transaction as the row that
// motivates them (team creation, membership change, task creation).
const (
	PermViewTeam      = "view_team"
	PermChangeTeam    = "change_team"
	PermDeleteTeam    = "delete_team"
	PermManageMembers = "manage_members"

	PermViewTask   = "view_task"
	PermChangeTask = "change_task"
	PermDeleteTask = "delete_task"
)

// TeamPerms is every permission a team owner holds on their team.
var TeamPerms = []string{PermViewTeam, PermChangeTeam, PermDeleteTeam, PermManageMembers}

// ObjectPermission is one permission grant for one user on one object.
type ObjectPermission struct {
	gorm.Model
	UserID     uint   `gorm:"not null;uniqueIndex:idx_user_perm_target" json:"user_id"`
	Permission string `gorm:"not null;uniqueIndex:idx_user_perm_target" json:"permission"`
	TargetType string `gorm:"not null;uniqueIndex:idx_user_perm_target" json:"target_type"`
	TargetID   uint   `gorm:"not null;uniqueIndex:idx_user_perm_target" json:"target_id"`
}
