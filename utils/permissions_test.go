package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/models"
)

func TestAssignPermIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "alice")

	require.NoError(t, AssignPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))
	require.NoError(t, AssignPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))

	var count int64
	db.Model(&models.ObjectPermission{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestRevokeThenRegrant(t *testing.T) {
	t.Run("single permission comes back after revocation", func(t *testing.T) {
		db := newTestDB(t)
		user := createUser(t, db, "alice")

		require.NoError(t, AssignPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))
		require.NoError(t, RemovePerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))
		require.False(t, HasPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))

		require.NoError(t, AssignPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1))
		assert.True(t, HasPerm(db, user.ID, models.PermViewTeam, models.TargetTeam, 1),
			"re-granted permission should be held again")
	})

	t.Run("demoted owner regains the full set on re-promotion", func(t *testing.T) {
		db := newTestDB(t)
		owner := createUser(t, db, "owner")
		member := createUser(t, db, "member")
		team := createTeam(t, db, owner)
		addMember(t, db, team, member)

		require.NoError(t, GrantTeamOwnerPerms(db, member.ID, team.ID))
		require.NoError(t, RevokeOwnerOnlyPerms(db, member.ID, team.ID))
		require.NoError(t, GrantTeamOwnerPerms(db, member.ID, team.ID))

		for _, perm := range models.TeamPerms {
			assert.True(t, HasPerm(db, member.ID, perm, models.TargetTeam, team.ID), perm)
		}
	})

	t.Run("removed member regains view on re-add", func(t *testing.T) {
		db := newTestDB(t)
		owner := createUser(t, db, "owner")
		member := createUser(t, db, "member")
		team := createTeam(t, db, owner)
		addMember(t, db, team, member)

		require.NoError(t, RemoveUserObjectPerms(db, member.ID, models.TargetTeam, team.ID))
		require.False(t, HasPerm(db, member.ID, models.PermViewTeam, models.TargetTeam, team.ID))

		membership := &models.TeamMembership{TeamID: team.ID, UserID: member.ID, Role: models.RoleMember}
		require.NoError(t, GrantMembershipPerms(db, membership))
		assert.True(t, HasPerm(db, member.ID, models.PermViewTeam, models.TargetTeam, team.ID))
	})
}

func TestTeamPermissionGrants(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner")
	member := createUser(t, db, "member")
	team := createTeam(t, db, owner)
	addMember(t, db, team, member)

	t.Run("owner holds the full team set", func(t *testing.T) {
		for _, perm := range models.TeamPerms {
			assert.True(t, HasPerm(db, owner.ID, perm, models.TargetTeam, team.ID), perm)
		}
	})

	t.Run("member holds view only", func(t *testing.T) {
		assert.True(t, HasPerm(db, member.ID, models.PermViewTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermChangeTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermDeleteTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermManageMembers, models.TargetTeam, team.ID))
	})

	t.Run("demotion revokes everything but view", func(t *testing.T) {
		require.NoError(t, GrantTeamOwnerPerms(db, member.ID, team.ID))
		require.NoError(t, RevokeOwnerOnlyPerms(db, member.ID, team.ID))

		assert.True(t, HasPerm(db, member.ID, models.PermViewTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermChangeTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermDeleteTeam, models.TargetTeam, team.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermManageMembers, models.TargetTeam, team.ID))
	})
}

func TestGrantTaskPerms(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner")
	creator := createUser(t, db, "creator")
	member := createUser(t, db, "member")
	team := createTeam(t, db, owner)
	addMember(t, db, team, creator)
	addMember(t, db, team, member)

	task := createTask(t, db, team, creator, nil)
	require.NoError(t, GrantTaskPerms(db, task))

	t.Run("every member may view", func(t *testing.T) {
		for _, u := range []*models.User{owner, creator, member} {
			assert.True(t, HasPerm(db, u.ID, models.PermViewTask, models.TargetTask, task.ID), u.Username)
		}
	})

	t.Run("owners and the creator may change and delete", func(t *testing.T) {
		for _, u := range []*models.User{owner, creator} {
			assert.True(t, HasPerm(db, u.ID, models.PermChangeTask, models.TargetTask, task.ID), u.Username)
			assert.True(t, HasPerm(db, u.ID, models.PermDeleteTask, models.TargetTask, task.ID), u.Username)
		}
	})

	t.Run("plain members may not change or delete", func(t *testing.T) {
		assert.False(t, HasPerm(db, member.ID, models.PermChangeTask, models.TargetTask, task.ID))
		assert.False(t, HasPerm(db, member.ID, models.PermDeleteTask, models.TargetTask, task.ID))
	})
}

func TestUserTeamsAndTasks(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner")
	alice := createUser(t, db, "alice")
	stranger := createUser(t, db, "stranger")

	team := createTeam(t, db, owner)
	addMember(t, db, team, alice)
	otherTeam := createTeam(t, db, alice)

	createTask(t, db, team, owner, nil)
	createTask(t, db, otherTeam, alice, nil)

	t.Run("teams follow view grants", func(t *testing.T) {
		teams, err := UserTeams(db, alice.ID)
		require.NoError(t, err)
		assert.Len(t, teams, 2)

		teams, err = UserTeams(db, owner.ID)
		require.NoError(t, err)
		assert.Len(t, teams, 1)

		teams, err = UserTeams(db, stranger.ID)
		require.NoError(t, err)
		assert.Empty(t, teams)
	})

	t.Run("tasks follow memberships", func(t *testing.T) {
		tasks, err := UserTasks(db, alice.ID)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)

		tasks, err = UserTasks(db, owner.ID)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)

		tasks, err = UserTasks(db, stranger.ID)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestMembershipChecks(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner")
	member := createUser(t, db, "member")
	stranger := createUser(t, db, "stranger")
	team := createTeam(t, db, owner)
	addMember(t, db, team, member)

	assert.True(t, IsTeamMember(db, owner.ID, team.ID))
	assert.True(t, IsTeamMember(db, member.ID, team.ID))
	assert.False(t, IsTeamMember(db, stranger.ID, team.ID))

	assert.True(t, IsTeamOwner(db, owner.ID, team.ID))
	assert.False(t, IsTeamOwner(db, member.ID, team.ID))
}
