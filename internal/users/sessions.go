package users

import (
	"errors"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/models"
)

// ErrSessionExpired is returned when a session token exists but is past
// its expiry.
var ErrSessionExpired = errors.New("session expired")

// CreateSession opens a login session for the user and returns it. Any
// previous sessions for the same user are dropped, one live session per
// account.
func (s *Service) CreateSession(user *models.User, ttl time.Duration) (*models.Session, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	session := models.Session{
		Token:     token.String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(ttl),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetBySession resolves a session token to its user. Expired sessions
// are deleted on sight.
func (s *Service) GetBySession(token string) (*models.User, error) {
	var session models.Session
	if err := s.db.Preload("User").Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		if err := s.db.Delete(&session).Error; err != nil {
			log.Printf("failed to evict expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}
	return &session.User, nil
}

// DeleteSession removes a session token (logout).
func (s *Service) DeleteSession(token string) error {
	return s.db.Where("token = ?", token).Delete(&models.Session{}).Error
}
