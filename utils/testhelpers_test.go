package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collabhub/config"
	"collabhub/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTeam(t *testing.T, db *gorm.DB, owner *models.User) *models.Team {
	t.Helper()
	team := &models.Team{Name: "Team " + owner.Username, CreatedByID: owner.ID}
	require.NoError(t, db.Create(team).Error)

	membership := &models.TeamMembership{TeamID: team.ID, UserID: owner.ID, Role: models.RoleOwner}
	require.NoError(t, db.Create(membership).Error)
	require.NoError(t, GrantTeamOwnerPerms(db, owner.ID, team.ID))
	return team
}

func addMember(t *testing.T, db *gorm.DB, team *models.Team, user *models.User) {
	t.Helper()
	membership := &models.TeamMembership{TeamID: team.ID, UserID: user.ID, Role: models.RoleMember}
	require.NoError(t, db.Create(membership).Error)
	require.NoError(t, GrantMembershipPerms(db, membership))
}

func createTask(t *testing.T, db *gorm.DB, team *models.Team, creator *models.User, assignee *uint) *models.Task {
	t.Helper()
	task := &models.Task{
		Title:        "Ship the release",
		TeamID:       team.ID,
		CreatedByID:  creator.ID,
		AssignedToID: assignee,
		Status:       models.StatusTodo,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}
