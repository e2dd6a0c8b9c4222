// Package gorm provides a GORM-backed portalauth.SessionStore for hosts
// that keep their state in a relational database rather than on disk. It
// works with any database GORM supports.
//
//	db, _ := gorm.Open(sqlite.Open("portal.db"), &gorm.Config{})
//	sessions, _ := gormstore.NewSessionStore(db)
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	pa "github.com/hopebridge/portalauth"
)

// JSONMap stores the cached backend user profile as a JSON column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}

// SessionModel is the single-row table holding the current session.
type SessionModel struct {
	ID           uint   `gorm:"primaryKey"`
	AccessToken  string `gorm:"column:access_token"`
	RefreshToken string `gorm:"column:refresh_token"`
	User         JSONMap
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the table name
func (SessionModel) TableName() string { return "portal_sessions" }

// currentSessionID pins the store to one row: there is at most one current
// session, and saving replaces it.
const currentSessionID = 1

// SessionStore implements pa.SessionStore using GORM.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore migrates the session table and returns the store.
func NewSessionStore(db *gorm.DB) (*SessionStore, error) {
	if err := db.AutoMigrate(&SessionModel{}); err != nil {
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

// Save replaces the current session in one transaction, so readers never
// observe new tokens alongside an old profile.
func (s *SessionStore) Save(session *pa.BackendSession) error {
	model := &SessionModel{
		ID:           currentSessionID,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		User:         JSONMap(session.User),
	}
	if !session.ExpiresAt.IsZero() {
		t := session.ExpiresAt
		model.ExpiresAt = &t
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", currentSessionID).Delete(&SessionModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
}

// Load returns the current session, or (nil, nil) when signed out.
func (s *SessionStore) Load() (*pa.BackendSession, error) {
	var model SessionModel
	if err := s.db.First(&model, "id = ?", currentSessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	session := &pa.BackendSession{
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
		User:         pa.BackendUser(model.User),
		CreatedAt:    model.CreatedAt,
	}
	if model.ExpiresAt != nil {
		session.ExpiresAt = *model.ExpiresAt
	}
	return session, nil
}

// Clear removes the current session.
func (s *SessionStore) Clear() error {
	return s.db.Where("id = ?", currentSessionID).Delete(&SessionModel{}).Error
}
