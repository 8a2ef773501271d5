package utils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabhub/models"
)

func TestCleanUsername(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"lowercases", "Alice", "alice"},
		{"strips punctuation", "john.doe+spam", "johndoespam"},
		{"keeps underscores and digits", "dev_ops2", "dev_ops2"},
		{"empty falls back", "", "user"},
		{"only punctuation falls back", "...", "user"},
		{"caps at 25 characters", strings.Repeat("a", 40), strings.Repeat("a", 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanUsername(tt.candidate))
		})
	}
}

func TestGenerateUniqueUsername(t *testing.T) {
	t.Run("no collision returns cleaned candidate", func(t *testing.T) {
		db := newTestDB(t)
		username, err := GenerateUniqueUsername(db, "Alice.Smith")
		require.NoError(t, err)
		assert.Equal(t, "alicesmith", username)
	})

	t.Run("collision appends smallest free suffix", func(t *testing.T) {
		db := newTestDB(t)
		createUser(t, db, "alice")
		createUser(t, db, "alice1")
		createUser(t, db, "alice2")

		username, err := GenerateUniqueUsername(db, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice3", username)
	})

	t.Run("exhausted suffixes fall back to timestamp", func(t *testing.T) {
		db := newTestDB(t)

		users := make([]models.User, 0, 1000)
		users = append(users, models.User{
			Username: "bob",
			Email:    "bob@example.com",
			IsActive: true,
		})
		for i := 1; i <= 999; i++ {
			users = append(users, models.User{
				Username: fmt.Sprintf("bob%d", i),
				Email:    fmt.Sprintf("bob%d@example.com", i),
				IsActive: true,
			})
		}
		require.NoError(t, db.CreateInBatches(users, 200).Error)

		username, err := GenerateUniqueUsername(db, "bob")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(username, "bob_"), "got %q", username)
		// bob_ plus a 14-digit timestamp
		assert.Len(t, username, len("bob_")+14)
	})

	t.Run("timestamp fallback truncates long stems", func(t *testing.T) {
		stem := CleanUsername(strings.Repeat("c", 40))
		require.Len(t, stem, 25)

		db := newTestDB(t)
		users := make([]models.User, 0, 1000)
		users = append(users, models.User{
			Username: stem,
			Email:    "c0@example.com",
			IsActive: true,
		})
		for i := 1; i <= 999; i++ {
			users = append(users, models.User{
				Username: fmt.Sprintf("%s%d", stem, i),
				Email:    fmt.Sprintf("c%d@example.com", i),
				IsActive: true,
			})
		}
		require.NoError(t, db.CreateInBatches(users, 200).Error)

		username, err := GenerateUniqueUsername(db, stem)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(username, stem[:15]+"_"), "got %q", username)
		assert.Len(t, username, 15+1+14)
	})
}
