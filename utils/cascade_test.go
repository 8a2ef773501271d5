package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"collabhub/models"
)

// buildTaskGraph creates a task with a comment thread, attachments on both the
// task and the reply, notifications, an activity entry and permission grants.
func buildTaskGraph(t *testing.T, db *gorm.DB) (*models.Task, *models.Comment, *models.Comment) {
	t.Helper()
	owner := createUser(t, db, "owner")
	alice := createUser(t, db, "alice")
	team := createTeam(t, db, owner)
	addMember(t, db, team, alice)

	task := createTask(t, db, team, owner, &alice.ID)
	require.NoError(t, GrantTaskPerms(db, task))

	comment := &models.Comment{TaskID: task.ID, AuthorID: owner.ID, Content: "top level"}
	require.NoError(t, db.Create(comment).Error)
	reply := &models.Comment{TaskID: task.ID, AuthorID: alice.ID, Content: "a reply", ParentID: &comment.ID}
	require.NoError(t, db.Create(reply).Error)

	require.NoError(t, db.Create(&models.FileUpload{
		FileName: "brief.pdf", StoredPath: "a/task.pdf", UploadedByID: owner.ID,
		TargetType: models.TargetTask, TargetID: task.ID,
	}).Error)
	require.NoError(t, db.Create(&models.FileUpload{
		FileName: "shot.png", StoredPath: "a/reply.png", UploadedByID: alice.ID,
		TargetType: models.TargetComment, TargetID: reply.ID,
	}).Error)

	require.NoError(t, db.Create(&models.Notification{
		RecipientID: alice.ID, SenderID: owner.ID, Type: models.NotificationAssignment,
		Message: "assigned", TargetType: models.TargetTask, TargetID: task.ID,
	}).Error)
	require.NoError(t, db.Create(&models.Notification{
		RecipientID: owner.ID, SenderID: alice.ID, Type: models.NotificationMention,
		Message: "mentioned", TargetType: models.TargetComment, TargetID: reply.ID,
	}).Error)

	require.NoError(t, LogActivity(db, task.ID, owner.ID, models.ActionTaskCreated, nil))
	return task, comment, reply
}

func countRows(db *gorm.DB, model interface{}) int64 {
	var count int64
	db.Model(model).Count(&count)
	return count
}

func TestCascadeDeleteTask(t *testing.T) {
	db := newTestDB(t)
	task, _, _ := buildTaskGraph(t, db)

	var paths []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		paths, err = CascadeDeleteTask(tx, task)
		return err
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a/task.pdf", "a/reply.png"}, paths)
	assert.Zero(t, countRows(db, &models.Task{}))
	assert.Zero(t, countRows(db, &models.Comment{}))
	assert.Zero(t, countRows(db, &models.FileUpload{}))
	assert.Zero(t, countRows(db, &models.Notification{}))
	assert.Zero(t, countRows(db, &models.ActivityLog{}))

	var taskPerms int64
	db.Model(&models.ObjectPermission{}).
		Where("target_type = ?", models.TargetTask).Count(&taskPerms)
	assert.Zero(t, taskPerms)
}

func TestCascadeDeleteComment(t *testing.T) {
	db := newTestDB(t)
	task, comment, _ := buildTaskGraph(t, db)

	var paths []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		paths, err = CascadeDeleteComment(tx, comment)
		return err
	})
	require.NoError(t, err)

	// The reply and its attachment go with the parent.
	assert.Equal(t, []string{"a/reply.png"}, paths)
	assert.Zero(t, countRows(db, &models.Comment{}))

	// The mention notification on the reply is gone; the task-level
	// assignment notification survives.
	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.TargetTask, remaining[0].TargetType)

	// The task itself and its own attachment are untouched.
	assert.EqualValues(t, 1, countRows(db, &models.Task{}))
	var file models.FileUpload
	require.NoError(t, db.First(&file).Error)
	assert.Equal(t, task.ID, file.TargetID)
	assert.Equal(t, models.TargetTask, file.TargetType)
}

func TestCascadeDeleteReplyOnly(t *testing.T) {
	db := newTestDB(t)
	_, _, reply := buildTaskGraph(t, db)

	var paths []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		paths, err = CascadeDeleteComment(tx, reply)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a/reply.png"}, paths)
	// The parent comment survives.
	assert.EqualValues(t, 1, countRows(db, &models.Comment{}))
}
