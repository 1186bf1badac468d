package client

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Repository interface for relying-party registration operations
type Repository interface {
	Create(client *Client) error
	FindByClientID(clientID string) (*Client, error)
	FindByCluster(cluster string) (*Client, error)
	FindActive() ([]*Client, error)
	UpdateRedirectURIs(clientID string, uris []string) error
	SetActive(clientID string, active bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new client repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(client *Client) error {
	var count int64
	if err := r.db.Model(&Client{}).Where("client_id = ?", client.ClientID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrClientIDExists
	}
	return r.db.Create(client).Error
}

func (r *repository) FindByClientID(clientID string) (*Client, error) {
	var c Client
	if err := r.db.Where("client_id = ?", clientID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindByCluster(cluster string) (*Client, error) {
	var c Client
	if err := r.db.Where("cluster = ?", cluster).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindActive() ([]*Client, error) {
	var clients []*Client
	if err := r.db.Where("active = ?", true).Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repository) UpdateRedirectURIs(clientID string, uris []string) error {
	res := r.db.Model(&Client{}).Where("client_id = ?", clientID).Update("redirect_uris", pq.StringArray(uris))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *repository) SetActive(clientID string, active bool) error {
	res := r.db.Model(&Client{}).Where("client_id = ?", clientID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}
