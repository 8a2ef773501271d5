package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/models"
)

func TestLinkOrCreateUser(t *testing.T) {
	t.Run("missing email aborts", func(t *testing.T) {
		db := newTestDB(t)
		user, err := LinkOrCreateUser(db, &GoogleUserInfo{ID: "g-1"})
		assert.ErrorIs(t, err, ErrMissingOAuthEmail)
		assert.Nil(t, user)
	})

	t.Run("single match links silently", func(t *testing.T) {
		db := newTestDB(t)
		existing := createUser(t, db, "alice")

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{
			ID:         "g-alice",
			Email:      existing.Email,
			GivenName:  "Alice",
			FamilyName: "Smith",
			Verified:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "g-alice", *user.GoogleID)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.True(t, user.EmailVerified)
	})

	t.Run("linking keeps existing profile fields", func(t *testing.T) {
		db := newTestDB(t)
		existing := createUser(t, db, "bob")
		require.NoError(t, db.Model(existing).Updates(map[string]interface{}{
			"first_name": "Robert",
			"last_name":  "Jones",
		}).Error)

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{
			ID:         "g-bob",
			Email:      existing.Email,
			GivenName:  "Bobby",
			FamilyName: "J",
		})
		require.NoError(t, err)
		assert.Equal(t, "Robert", user.FirstName)
		assert.Equal(t, "Jones", user.LastName)
	})

	t.Run("duplicate emails link the oldest account", func(t *testing.T) {
		db := newTestDB(t)
		older := createUser(t, db, "carol_old")
		newer := createUser(t, db, "carol_new")

		// Force the duplicate email directly; the unique index would normally
		// prevent it, this reproduces legacy data.
		require.NoError(t, db.Exec(
			"UPDATE users SET email = ?, created_at = ? WHERE id = ?",
			"carol@example.com", time.Now().Add(-48*time.Hour), older.ID).Error)
		require.NoError(t, db.Exec(
			"UPDATE users SET email = ? WHERE id = ?",
			"carol@example.com", newer.ID).Error)

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{ID: "g-carol", Email: "carol@example.com"})
		require.NoError(t, err)
		assert.Equal(t, older.ID, user.ID)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "g-carol", *user.GoogleID)
	})

	t.Run("no match creates a new account", func(t *testing.T) {
		db := newTestDB(t)

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{
			ID:        "g-dave",
			Email:     "Dave.Miller@gmail.com",
			GivenName: "Dave",
			Verified:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, "davemiller", user.Username)
		assert.True(t, user.EmailVerified)
		assert.True(t, user.IsActive)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "g-dave", *user.GoogleID)
	})

	t.Run("new account username deduplicates", func(t *testing.T) {
		db := newTestDB(t)
		createUser(t, db, "eve")

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{ID: "g-eve", Email: "eve@gmail.com"})
		require.NoError(t, err)
		assert.Equal(t, "eve1", user.Username)
	})

	t.Run("relinking an already linked account is a no-op", func(t *testing.T) {
		db := newTestDB(t)
		existing := createUser(t, db, "frank")
		googleID := "g-frank"
		require.NoError(t, db.Model(existing).Updates(map[string]interface{}{
			"google_id":      googleID,
			"email_verified": true,
		}).Error)

		user, err := LinkOrCreateUser(db, &GoogleUserInfo{ID: googleID, Email: existing.Email, Verified: true})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})
}
