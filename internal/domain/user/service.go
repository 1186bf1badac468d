package user

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Handle         string `json:"handle" validate:"required,min=3,max=30"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	DisplayName    string `json:"display_name" validate:"max=255"`
	PrimaryCluster string `json:"primary_cluster" validate:"max=50"`
	IsCreator      bool   `json:"is_creator"`
	AcceptTerms    bool   `json:"accept_terms"`
}

// Service interface for user operations
type Service interface {
	Register(req RegisterRequest) (*User, error)
	Authenticate(email, password string) (*User, error)
	GetByID(id uuid.UUID) (*User, error)
	TouchLogin(id uuid.UUID) error
	Deactivate(id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo}
}

// Register creates a new user. No row is written when any check fails.
func (s *service) Register(req RegisterRequest) (*User, error) {
	if !req.AcceptTerms {
		return nil, ErrTermsNotAccepted
	}
	if !handlePattern.MatchString(req.Handle) {
		return nil, ErrInvalidHandle
	}
	if err := CheckPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	if exists, err := s.repo.ExistsByEmail(req.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrEmailExists
	}

	if exists, err := s.repo.ExistsByHandle(req.Handle); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrHandleExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Handle:         req.Handle,
		Email:          strings.ToLower(req.Email),
		PasswordHash:   hashedPassword,
		DisplayName:    req.DisplayName,
		PrimaryCluster: req.PrimaryCluster,
		IsCreator:      req.IsCreator,
		Status:         StatusActive,
	}

	if err := s.repo.Create(u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate checks credentials. The returned error is identical for an
// unknown email and a wrong password so callers cannot enumerate accounts.
func (s *service) Authenticate(email, password string) (*User, error) {
	u, err := s.repo.FindByEmailAnyStatus(email)
	if err != nil {
		// Burn a hash comparison so timing matches the known-email path
		VerifyPassword(password, dummyHash)
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive() {
		return nil, ErrAccountNotActive
	}

	return u, nil
}

func (s *service) GetByID(id uuid.UUID) (*User, error) {
	return s.repo.FindByID(id)
}

func (s *service) TouchLogin(id uuid.UUID) error {
	return s.repo.UpdateLastLogin(id)
}

func (s *service) Deactivate(id uuid.UUID) error {
	return s.repo.UpdateStatus(id, StatusDisabled)
}

// dummyHash is a valid Argon2id encoding of a random throwaway value
const dummyHash = "$argon2id$v=19$m=65536,t=2,p=2$c29tZXNhbHRzb21lc2FsdA$RdescudvJCsgt3ub+b+dWRWJTmaaJObG"

// CheckPasswordStrength enforces the minimum password policy:
// at least 8 characters with an upper-case letter, a lower-case letter
// and a digit.
func CheckPasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}
