package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collabhub/models"
)

const (
	usernameMaxLen       = 25 // leaves room for a numeric suffix
	usernameSuffixTries  = 999
	usernameStemFallback = 15 // stem kept in front of the timestamp suffix
)

var nonWordPattern = regexp.MustCompile(`[^\w]`)

// CleanUsername reduces raw candidate text (typically the local part of an
// email address) to a lowercase alphanumeric-plus-underscore token. Empty or
// whitespace-only candidates fall back to "user".
func CleanUsername(candidate string) string {
	username := nonWordPattern.ReplaceAllString(strings.ToLower(candidate), "")
	if username == "" {
		username = "user"
	}
	if len(username) > usernameMaxLen {
		username = username[:usernameMaxLen]
	}
	return username
}

// GenerateUniqueUsername produces a username that does not collide with any
// existing account. On collision it appends the smallest unused integer suffix
// from 1 to 999; if all are taken it falls back to a timestamp suffix.
func GenerateUniqueUsername(db *gorm.DB, candidate string) (string, error) {
	username := CleanUsername(candidate)

	taken, err := usernameTaken(db, username)
	if err != nil {
		return "", err
	}
	if !taken {
		return username, nil
	}

	logrus.WithField("username", username).Warn("Username conflict detected")

	for i := 1; i <= usernameSuffixTries; i++ {
		next := fmt.Sprintf("%s%d", username, i)
		taken, err := usernameTaken(db, next)
		if err != nil {
			return "", err
		}
		if !taken {
			return next, nil
		}
	}

	// Every numeric suffix is taken; a timestamp suffix is the last resort.
	stem := username
	if len(stem) > usernameStemFallback {
		stem = stem[:usernameStemFallback]
	}
	fallback := fmt.Sprintf("%s_%s", stem, time.Now().Format("20060102150405"))
	logrus.WithFields(logrus.Fields{
		"username": username,
		"fallback": fallback,
	}).Warn("Exhausted numeric username suffixes, using timestamp fallback")
	return fallback, nil
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
