package utils

import (
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"collabhub/models"
)

// newRecordingOutbox returns an Outbox whose dispatch is captured instead of
// going through SMTP.
func newRecordingOutbox() (*Outbox, *[]string) {
	var sent []string
	outbox := &Outbox{
		send: func(notification *models.Notification, recipient, sender *models.User) {
			sent = append(sent, notification.Message)
		},
	}
	return outbox, &sent
}

func TestOutboxFlushSendsInOrder(t *testing.T) {
	outbox, sent := newRecordingOutbox()

	alice := models.User{Username: "alice"}
	bob := models.User{Username: "bob"}
	outbox.Add(models.Notification{Message: "first"}, alice, bob)
	outbox.Add(models.Notification{Message: "second"}, alice, bob)

	assert.Empty(t, *sent, "nothing dispatches before Flush")

	outbox.Flush()
	assert.Equal(t, []string{"first", "second"}, *sent)

	// A second Flush must not resend.
	outbox.Flush()
	assert.Equal(t, []string{"first", "second"}, *sent)
}

func TestOutboxRolledBackTransactionSendsNothing(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner")
	alice := createUser(t, db, "alice")
	team := createTeam(t, db, owner)
	addMember(t, db, team, alice)

	notifier := NewNotifier(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	outbox, sent := newRecordingOutbox()

	boom := errors.New("write failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		task := &models.Task{
			Title:        "Doomed task",
			TeamID:       team.ID,
			CreatedByID:  owner.ID,
			AssignedToID: &alice.ID,
			Status:       models.StatusTodo,
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		notification, err := notifier.CreateAssignmentNotification(tx, task, owner)
		if err != nil {
			return err
		}
		outbox.Add(*notification, *alice, *owner)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The handler pattern: Flush only runs when the transaction returns nil,
	// so nothing was dispatched and the queued email stays undelivered.
	assert.Empty(t, *sent)

	// The rollback also took the notification row with it.
	var count int64
	db.Model(&models.Notification{}).Count(&count)
	assert.Zero(t, count)
}
