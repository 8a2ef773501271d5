package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "hey @alice, look at this", []string{"alice"}},
		{"multiple", "@alice and @bob should review", []string{"alice", "bob"}},
		{"dedupe keeps first occurrence order", "@bob then @alice then @bob again", []string{"bob", "alice"}},
		{"punctuation ends the mention", "ping @alice!", []string{"alice"}},
		{"underscores and digits allowed", "cc @dev_ops2", []string{"dev_ops2"}},
		{"bare at sign", "meet @ noon", nil},
		{"no mentions", "nothing to see here", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.text))
		})
	}
}

func TestHighlightMentions(t *testing.T) {
	got := HighlightMentions("thanks @alice, ping @bob")
	assert.Equal(t, `thanks <span class="mention">@alice</span>, ping <span class="mention">@bob</span>`, got)

	assert.Equal(t, "", HighlightMentions(""))
	assert.Equal(t, "no mentions", HighlightMentions("no mentions"))
}

func TestMentionedUsers(t *testing.T) {
	db := newTestDB(t)

	owner := createUser(t, db, "owner")
	alice := createUser(t, db, "alice")
	createUser(t, db, "mallory") // not a team member

	team := createTeam(t, db, owner)
	addMember(t, db, team, alice)

	t.Run("resolves team members only", func(t *testing.T) {
		users, err := MentionedUsers(db, "cc @alice and @mallory and @ghost", team.ID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, alice.ID, users[0].ID)
	})

	t.Run("no mentions yields no users", func(t *testing.T) {
		users, err := MentionedUsers(db, "plain text", team.ID)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}
