package oidc

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository interface for authorization code operations
type Repository interface {
	Create(code *AuthorizationCode) error
	// FindByCode returns the code row regardless of state so callers can
	// validate binding before consuming.
	FindByCode(code string) (*AuthorizationCode, error)
	// Consume atomically marks a code as used and returns it. A code can be
	// consumed exactly once; replays get ErrCodeAlreadyUsed.
	Consume(code string) (*AuthorizationCode, error)
	DeleteExpired(before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new authorization code repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(code *AuthorizationCode) error {
	return r.db.Create(code).Error
}

func (r *repository) FindByCode(code string) (*AuthorizationCode, error) {
	var authCode AuthorizationCode
	if err := r.db.Where("code = ?", code).First(&authCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	return &authCode, nil
}

// Consume runs the lookup and the guarded used-flag flip in one transaction.
// The WHERE clause on the UPDATE carries the single-use guarantee: two
// concurrent exchanges race on RowsAffected and exactly one wins.
func (r *repository) Consume(code string) (*AuthorizationCode, error) {
	var authCode AuthorizationCode

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).First(&authCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		if authCode.Used {
			return ErrCodeAlreadyUsed
		}
		if time.Now().After(authCode.ExpiresAt) {
			return ErrInvalidCode
		}

		result := tx.Model(&AuthorizationCode{}).
			Where("code = ? AND used = false AND expires_at > ?", code, time.Now()).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return ErrCodeAlreadyUsed
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	authCode.Used = true
	return &authCode, nil
}

func (r *repository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ?", before).Delete(&AuthorizationCode{})
	return result.RowsAffected, result.Error
}
