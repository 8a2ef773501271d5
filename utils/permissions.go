package utils

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collabhub/models"
)

// AssignPerm grants a single object-level permission to a user. Granting an
// already-held permission is a no-op.
func AssignPerm(db *gorm.DB, userID uint, permission, targetType string, targetID uint) error {
	grant := models.ObjectPermission{
		UserID:     userID,
		Permission: permission,
		TargetType: targetType,
		TargetID:   targetID,
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
}

// RemovePerm revokes a single object-level permission from a user. Revocation
// is a hard delete: a soft-deleted row would keep holding the unique index
// slot and make a later regrant a silent no-op.
func RemovePerm(db *gorm.DB, userID uint, permission, targetType string, targetID uint) error {
	return db.Unscoped().
		Where("user_id = ? AND permission = ? AND target_type = ? AND target_id = ?",
			userID, permission, targetType, targetID).
		Delete(&models.ObjectPermission{}).Error
}

// RemoveObjectPerms revokes every permission any user holds on one object.
// Used when the object itself is deleted.
func RemoveObjectPerms(db *gorm.DB, targetType string, targetID uint) error {
	return db.Unscoped().
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.ObjectPermission{}).Error
}

// RemoveUserObjectPerms revokes every permission one user holds on one object.
func RemoveUserObjectPerms(db *gorm.DB, userID uint, targetType string, targetID uint) error {
	return db.Unscoped().
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Delete(&models.ObjectPermission{}).Error
}

// HasPerm answers whether a user holds a permission on an object. Permission
// state is authoritative in the grant table, not computed from roles.
func HasPerm(db *gorm.DB, userID uint, permission, targetType string, targetID uint) bool {
	var count int64
	db.Model(&models.ObjectPermission{}).
		Where("user_id = ? AND permission = ? AND target_type = ? AND target_id = ?",
			userID, permission, targetType, targetID).
		Count(&count)
	return count > 0
}

// IsTeamMember answers whether the user has a membership row in the team.
func IsTeamMember(db *gorm.DB, userID, teamID uint) bool {
	var count int64
	db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count)
	return count > 0
}

// IsTeamOwner answers whether the user holds the owner role in the team.
func IsTeamOwner(db *gorm.DB, userID, teamID uint) bool {
	var count int64
	db.Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ? AND role = ?", teamID, userID, models.RoleOwner).
		Count(&count)
	return count > 0
}

// UserTeams returns every team the user holds view permission on.
func UserTeams(db *gorm.DB, userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := db.
		Where("id IN (?)", db.Model(&models.ObjectPermission{}).
			Select("target_id").
			Where("user_id = ? AND permission = ? AND target_type = ?",
				userID, models.PermViewTeam, models.TargetTeam)).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

// UserTaskScope narrows a task query to the teams the user is a member of.
func UserTaskScope(db *gorm.DB, userID uint) *gorm.DB {
	return db.Where("team_id IN (?)", db.Model(&models.TeamMembership{}).
		Select("team_id").
		Where("user_id = ?", userID))
}

// UserTasks returns every task belonging to a team the user is a member of.
func UserTasks(db *gorm.DB, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := UserTaskScope(db, userID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// GrantTeamOwnerPerms grants the full set of team permissions to a user.
func GrantTeamOwnerPerms(db *gorm.DB, userID, teamID uint) error {
	for _, perm := range models.TeamPerms {
		if err := AssignPerm(db, userID, perm, models.TargetTeam, teamID); err != nil {
			return err
		}
	}
	return nil
}

// GrantMembershipPerms grants the permissions a membership row implies: view
// for every member, the full owner set for owners.
func GrantMembershipPerms(db *gorm.DB, membership *models.TeamMembership) error {
	if membership.Role == models.RoleOwner {
		return GrantTeamOwnerPerms(db, membership.UserID, membership.TeamID)
	}
	return AssignPerm(db, membership.UserID, models.PermViewTeam, models.TargetTeam, membership.TeamID)
}

// RevokeOwnerOnlyPerms removes the owner-only team permissions, leaving view
// in place. Used when an owner is demoted to member.
func RevokeOwnerOnlyPerms(db *gorm.DB, userID, teamID uint) error {
	for _, perm := range []string{models.PermChangeTeam, models.PermDeleteTeam, models.PermManageMembers} {
		if err := RemovePerm(db, userID, perm, models.TargetTeam, teamID); err != nil {
			return err
		}
	}
	return nil
}

// GrantTaskPerms applies the task-creation grant rules: every team member may
// view the task; owners and the creator may also change and delete it.
func GrantTaskPerms(db *gorm.DB, task *models.Task) error {
	var memberships []models.TeamMembership
	if err := db.Where("team_id = ?", task.TeamID).Find(&memberships).Error; err != nil {
		return err
	}

	for _, m := range memberships {
		if err := AssignPerm(db, m.UserID, models.PermViewTask, models.TargetTask, task.ID); err != nil {
			return err
		}
		if m.Role == models.RoleOwner || m.UserID == task.CreatedByID {
			if err := AssignPerm(db, m.UserID, models.PermChangeTask, models.TargetTask, task.ID); err != nil {
				return err
			}
			if err := AssignPerm(db, m.UserID, models.PermDeleteTask, models.TargetTask, task.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
