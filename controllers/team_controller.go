package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"collabhub/models"
	"collabhub/utils"
)

type TeamController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
	Mailer   *utils.NotificationMailer
}

func NewTeamController(db *gorm.DB, logger *log.Logger, notifier *utils.Notifier, mailer *utils.NotificationMailer) *TeamController {
	return &TeamController{
		DB:       db,
		Logger:   logger,
		Notifier: notifier,
		Mailer:   mailer,
	}
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type AddMemberRequest struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=owner member"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner member"`
}

// CreateTeam creates a team, its owner membership and the creator's full
// permission set in one transaction.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		CreatedByID: user.ID,
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}

		membership := models.TeamMembership{
			TeamID: team.ID,
			UserID: user.ID,
			Role:   models.RoleOwner,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		return utils.GrantTeamOwnerPerms(tx, user.ID, team.ID)
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", err)
	}

	tc.Logger.Printf("Team %d created by user %d", team.ID, user.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// GetTeams lists the teams the caller can view.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	teams, err := utils.UserTeams(tc.DB, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list teams", err)
	}
	return c.JSON(utils.SuccessResponse(teams))
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermViewTeam, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to view this team", nil)
	}

	var team models.Team
	if err := tc.DB.Preload("Memberships.User").First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}
	return c.JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermChangeTeam, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to edit this team", nil)
	}

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	team.Name = req.Name
	team.Description = req.Description
	if err := tc.DB.Save(&team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", err)
	}
	return c.JSON(utils.SuccessResponse(team))
}

// DeleteTeam removes the team, its memberships, its tasks (with their full
// cascade) and every permission grant referencing it.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermDeleteTeam, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to delete this team", nil)
	}

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var storedPaths []string
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		if err := tx.Where("team_id = ?", teamID).Find(&tasks).Error; err != nil {
			return err
		}
		for i := range tasks {
			paths, err := utils.CascadeDeleteTask(tx, &tasks[i])
			if err != nil {
				return err
			}
			storedPaths = append(storedPaths, paths...)
		}

		if err := tx.Unscoped().Where("team_id = ?", teamID).Delete(&models.TeamMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().
			Where("target_type = ? AND target_id = ?", models.TargetTeam, teamID).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := utils.RemoveObjectPerms(tx, models.TargetTeam, teamID); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&team).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", err)
	}

	utils.DeleteStoredFiles(storedPaths)
	tc.Logger.Printf("Team %d deleted by user %d", teamID, user.ID)
	return c.JSON(fiber.Map{"message": "Team deleted"})
}

// AddMember adds a user to the team and grants the permissions their role
// implies, then notifies them (email deferred until after commit).
func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermManageMembers, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to manage team members", nil)
	}

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}

	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	var member models.User
	if err := tc.DB.Where("username = ?", req.Username).First(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}
	if utils.IsTeamMember(tc.DB, member.ID, teamID) {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User is already a member of this team", nil)
	}

	membership := models.TeamMembership{
		TeamID: teamID,
		UserID: member.ID,
		Role:   req.Role,
	}

	outbox := tc.Mailer.NewOutbox()
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		if err := utils.GrantMembershipPerms(tx, &membership); err != nil {
			return err
		}

		notification, err := tc.Notifier.CreateTeamAddedNotification(tx, &membership, &team, user)
		if err != nil {
			return err
		}
		if notification != nil {
			outbox.Add(*notification, member, *user)
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}
	outbox.Flush()

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(membership))
}

// RemoveMember removes a membership and revokes the team permissions that
// came with it. The last owner can never be removed.
func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))
	memberID := utils.ParseUint(c.Params("userId"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermManageMembers, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to manage team members", nil)
	}

	var membership models.TeamMembership
	if err := tc.DB.Where("team_id = ? AND user_id = ?", teamID, memberID).First(&membership).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Membership not found", nil)
	}

	if membership.Role == models.RoleOwner {
		var owners int64
		tc.DB.Model(&models.TeamMembership{}).
			Where("team_id = ? AND role = ?", teamID, models.RoleOwner).
			Count(&owners)
		if owners <= 1 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot remove the last owner of the team", nil)
		}
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := utils.RemoveUserObjectPerms(tx, memberID, models.TargetTeam, teamID); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&membership).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", err)
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}

// ChangeMemberRole promotes or demotes a member, keeping the permission table
// in lockstep. Demoting the last owner is refused.
func (tc *TeamController) ChangeMemberRole(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))
	memberID := utils.ParseUint(c.Params("userId"))

	if !utils.HasPerm(tc.DB, user.ID, models.PermManageMembers, models.TargetTeam, teamID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have permission to manage team members", nil)
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var membership models.TeamMembership
	if err := tc.DB.Where("team_id = ? AND user_id = ?", teamID, memberID).First(&membership).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Membership not found", nil)
	}
	if membership.Role == req.Role {
		return c.JSON(utils.SuccessResponse(membership))
	}

	if membership.Role == models.RoleOwner && req.Role == models.RoleMember {
		var owners int64
		tc.DB.Model(&models.TeamMembership{}).
			Where("team_id = ? AND role = ?", teamID, models.RoleOwner).
			Count(&owners)
		if owners <= 1 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot demote the last owner of the team", nil)
		}
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		membership.Role = req.Role
		if err := tx.Save(&membership).Error; err != nil {
			return err
		}
		if req.Role == models.RoleOwner {
			return utils.GrantTeamOwnerPerms(tx, memberID, teamID)
		}
		return utils.RevokeOwnerOnlyPerms(tx, memberID, teamID)
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to change role", err)
	}

	return c.JSON(utils.SuccessResponse(membership))
}
