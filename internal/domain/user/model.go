package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexauth/nexauth/internal/database"
)

// Status represents the user lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
	StatusDisabled  Status = "disabled"
)

// User represents an end-user identity shared by all clusters.
// Users are never hard-deleted; deactivation sets status to disabled.
type User struct {
	database.BaseModel
	Handle         string         `gorm:"column:handle;uniqueIndex;not null;size:50"`
	Email          string         `gorm:"column:email;uniqueIndex;not null;size:255"`
	PasswordHash   string         `gorm:"column:password_hash;not null" json:"-"`
	DisplayName    string         `gorm:"column:display_name;size:255"`
	Bio            string         `gorm:"column:bio;type:text"`
	AvatarURL      string         `gorm:"column:avatar_url;type:text"`
	PrimaryCluster string         `gorm:"column:primary_cluster;size:50"`
	IsCreator      bool           `gorm:"column:is_creator;default:false"`
	IsVerified     bool           `gorm:"column:is_verified;default:false"`
	IsAdmin        bool           `gorm:"column:is_admin;default:false"`
	IsModerator    bool           `gorm:"column:is_moderator;default:false"`
	Status         Status         `gorm:"column:status;size:20;default:'active';index"`
	LastLoginAt    *time.Time     `gorm:"column:last_login_at"`
	Metadata       map[string]any `gorm:"column:metadata;serializer:json"`
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserResponse represents a safe user response without credential material
type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Handle         string     `json:"handle"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"display_name,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	PrimaryCluster string     `json:"primary_cluster,omitempty"`
	IsCreator      bool       `json:"is_creator"`
	IsVerified     bool       `json:"is_verified"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// ToResponse converts a User to UserResponse
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:             u.ID,
		Handle:         u.Handle,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		PrimaryCluster: u.PrimaryCluster,
		IsCreator:      u.IsCreator,
		IsVerified:     u.IsVerified,
		Status:         u.Status,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}
