package utils

import (
	"regexp"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"collabhub/models"
)

// mentionPattern matches @username tokens: an @ followed by one or more word
// characters. The first capture group is the bare username.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns every username mentioned in text, without the @,
// deduplicated while preserving first-occurrence order.
func ExtractMentions(text string) []string {
	if text == "" {
		return nil
	}

	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	return lo.Uniq(lo.Map(matches, func(m []string, _ int) string {
		return m[1]
	}))
}

// MentionedUsers resolves the mentions in text to user accounts that are
// members of the given team. Mentions of unknown users or non-members are
// silently dropped.
func MentionedUsers(db *gorm.DB, text string, teamID uint) ([]models.User, error) {
	usernames := ExtractMentions(text)
	if len(usernames) == 0 {
		return nil, nil
	}

	var users []models.User
	err := db.
		Where("username IN ?", usernames).
		Where("id IN (?)", db.Model(&models.TeamMembership{}).
			Select("user_id").
			Where("team_id = ?", teamID)).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// HighlightMentions wraps each @username in a highlighting span for display,
// leaving the surrounding text untouched.
func HighlightMentions(text string) string {
	if text == "" {
		return text
	}
	return mentionPattern.ReplaceAllString(text, `<span class="mention">@$1</span>`)
}
