package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/database"
)

// Session is a revocable login bound to a user and a cluster. Only SHA3-256
// hashes of the opaque session and refresh tokens are stored; presenting
// either token means hashing it and looking the row up.
type Session struct {
	database.BaseModel

	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Cluster       string    `gorm:"column:cluster;size:50;not null;index"`
	TokenHash     string    `gorm:"column:token_hash;uniqueIndex;not null"`
	RefreshHash   string    `gorm:"column:refresh_hash;uniqueIndex;not null"`
	GrantedScopes string    `gorm:"column:granted_scopes;type:text"` // space-separated
	ExpiresAt     time.Time `gorm:"column:expires_at;not null;index"`

	IPAddress string `gorm:"column:ip_address;type:text"`
	UserAgent string `gorm:"column:user_agent;type:text"`

	LastUsedAt time.Time `gorm:"column:last_used_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Scopes returns the granted scopes as a slice
func (s *Session) Scopes() []string {
	if s.GrantedScopes == "" {
		return nil
	}
	return splitScopes(s.GrantedScopes)
}
