package utils

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collabhub/models"
)

// GoogleUserInfo is the identity assertion returned by Google's userinfo
// endpoint.
type GoogleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Verified   bool   `json:"verified_email"`
}

// ErrMissingOAuthEmail is returned when the identity assertion carries no
// email address, which aborts linking.
var ErrMissingOAuthEmail = errors.New("oauth assertion is missing an email address")

// LinkOrCreateUser maps a Google identity assertion onto a local account:
//
//   - exactly one account with the assertion's email: link silently.
//   - more than one (a data-integrity anomaly): link the earliest-created
//     account and log the anomaly; never an error for the caller.
//   - none: create a new account with a generated username.
//   - missing email: log and abort.
func LinkOrCreateUser(db *gorm.DB, info *GoogleUserInfo) (*models.User, error) {
	if info.Email == "" {
		logrus.Warn("Google OAuth login attempted without email address")
		return nil, ErrMissingOAuthEmail
	}

	var matches []models.User
	if err := db.Where("email = ?", info.Email).Order("created_at ASC").Find(&matches).Error; err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 1:
		user := matches[0]
		if err := linkGoogleIdentity(db, &user, info); err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"username": user.Username,
			"email":    info.Email,
		}).Info("Linked Google account to existing user")
		return &user, nil

	case len(matches) > 1:
		// Duplicate emails should be impossible; link the oldest account and
		// record the anomaly rather than failing the login.
		logrus.WithFields(logrus.Fields{
			"email": info.Email,
			"count": len(matches),
		}).Error("Multiple users found with the same email during OAuth login; linking the oldest")
		user := matches[0]
		if err := linkGoogleIdentity(db, &user, info); err != nil {
			return nil, err
		}
		return &user, nil
	}

	// No local account yet: create one.
	candidate := info.Email
	if at := strings.Index(candidate, "@"); at > 0 {
		candidate = candidate[:at]
	}
	username, err := GenerateUniqueUsername(db, candidate)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:      username,
		Email:         info.Email,
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
		GoogleID:      &info.ID,
		EmailVerified: info.Verified,
		IsActive:      true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"username": user.Username,
		"email":    user.Email,
	}).Info("Created new user via Google OAuth")
	return &user, nil
}

func linkGoogleIdentity(db *gorm.DB, user *models.User, info *GoogleUserInfo) error {
	changed := false
	if user.GoogleID == nil || *user.GoogleID != info.ID {
		user.GoogleID = &info.ID
		changed = true
	}
	if user.FirstName == "" && info.GivenName != "" {
		user.FirstName = info.GivenName
		changed = true
	}
	if user.LastName == "" && info.FamilyName != "" {
		user.LastName = info.FamilyName
		changed = true
	}
	if !user.EmailVerified && info.Verified {
		user.EmailVerified = true
		changed = true
	}

	if !changed {
		return nil
	}
	return db.Save(user).Error
}
