package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface for user operations.
// Lookups are case-insensitive on email and handle and return only
// active users unless stated otherwise.
type Repository interface {
	Create(user *User) error
	FindByID(id uuid.UUID) (*User, error)
	FindByEmail(email string) (*User, error)
	FindByHandle(handle string) (*User, error)
	FindByEmailAnyStatus(email string) (*User, error)
	ExistsByEmail(email string) (bool, error)
	ExistsByHandle(handle string) (bool, error)
	UpdateLastLogin(id uuid.UUID) error
	UpdateStatus(id uuid.UUID, status Status) error
	Update(user *User) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(user *User) error {
	return r.db.Create(user).Error
}

func (r *repository) FindByID(id uuid.UUID) (*User, error) {
	var user User
	err := r.db.Where("id = ? AND status = ?", id, StatusActive).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(email string) (*User, error) {
	var user User
	err := r.db.Where("LOWER(email) = LOWER(?) AND status = ?", email, StatusActive).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByHandle(handle string) (*User, error) {
	var user User
	err := r.db.Where("LOWER(handle) = LOWER(?) AND status = ?", handle, StatusActive).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmailAnyStatus looks up a user regardless of lifecycle status.
// Login needs this to distinguish a suspended account from bad credentials.
func (r *repository) FindByEmailAnyStatus(email string) (*User, error) {
	var user User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count > 0, err
}

func (r *repository) ExistsByHandle(handle string) (bool, error) {
	var count int64
	err := r.db.Model(&User{}).Where("LOWER(handle) = LOWER(?)", handle).Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateLastLogin(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&User{}).Where("id = ?", id).Update("last_login_at", &now).Error
}

func (r *repository) UpdateStatus(id uuid.UUID, status Status) error {
	res := r.db.Model(&User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) Update(user *User) error {
	return r.db.Save(user).Error
}
