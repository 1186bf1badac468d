package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errRotationLost aborts the rotation transaction when the guarded delete
// matched no row, meaning another caller rotated first.
var errRotationLost = errors.New("rotation lost")

type Repository interface {
	Create(sess *Session) error
	// FindByTokenHash and FindByRefreshHash return the row even when it has
	// expired; the service decides how an expired session surfaces.
	FindByTokenHash(hash string) (*Session, error)
	FindByRefreshHash(hash string) (*Session, error)
	DeleteByTokenHash(hash string) (int64, error)
	DeleteByID(id uuid.UUID) error
	// Rotate atomically replaces the session identified by oldRefreshHash
	// with the replacement row. Returns false when the old row was already
	// gone, which means a concurrent rotation won or the token was replayed.
	Rotate(oldRefreshHash string, replacement *Session) (bool, error)
	FindAllForUserCluster(userID uuid.UUID, cluster string) ([]Session, error)
	DeleteAllForUserCluster(userID uuid.UUID, cluster string) (int64, error)
	UpdateLastUsed(id uuid.UUID, t time.Time) error
	DeleteExpired(now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(sess *Session) error {
	return r.db.Create(sess).Error
}

func (r *repository) FindByTokenHash(hash string) (*Session, error) {
	var sess Session
	err := r.db.Where("token_hash = ?", hash).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) FindByRefreshHash(hash string) (*Session, error) {
	var sess Session
	err := r.db.Where("refresh_hash = ?", hash).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) DeleteByTokenHash(hash string) (int64, error) {
	res := r.db.Where("token_hash = ?", hash).Delete(&Session{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByID(id uuid.UUID) error {
	return r.db.Delete(&Session{}, "id = ?", id).Error
}

func (r *repository) Rotate(oldRefreshHash string, replacement *Session) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("refresh_hash = ? AND expires_at > ?", oldRefreshHash, time.Now().UTC()).
			Delete(&Session{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errRotationLost
		}
		return tx.Create(replacement).Error
	})
	if errors.Is(err, errRotationLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FindAllForUserCluster(userID uuid.UUID, cluster string) ([]Session, error) {
	var sessions []Session
	err := r.db.Where("user_id = ? AND cluster = ?", userID, cluster).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) DeleteAllForUserCluster(userID uuid.UUID, cluster string) (int64, error) {
	res := r.db.Where("user_id = ? AND cluster = ?", userID, cluster).Delete(&Session{})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateLastUsed(id uuid.UUID, t time.Time) error {
	return r.db.Model(&Session{}).
		Where("id = ?", id).
		Update("last_used_at", t).Error
}

func (r *repository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&Session{})
	return res.RowsAffected, res.Error
}
