package user

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(u *User) error {
	args := m.Called(u)
	return args.Error(0)
}

func (m *MockRepository) FindByID(id uuid.UUID) (*User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmail(email string) (*User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByHandle(handle string) (*User, error) {
	args := m.Called(handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmailAnyStatus(email string) (*User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) ExistsByEmail(email string) (bool, error) {
	args := m.Called(email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExistsByHandle(handle string) (bool, error) {
	args := m.Called(handle)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdateLastLogin(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepository) UpdateStatus(id uuid.UUID, status Status) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockRepository) Update(u *User) error {
	args := m.Called(u)
	return args.Error(0)
}

func TestService_Register(t *testing.T) {
	validReq := RegisterRequest{
		Handle:         "testuser",
		Email:          "Test@Example.com",
		Password:       "Str0ngpassword",
		DisplayName:    "Test User",
		PrimaryCluster: "music",
		AcceptTerms:    true,
	}

	t.Run("successful registration", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExistsByEmail", validReq.Email).Return(false, nil)
		repo.On("ExistsByHandle", validReq.Handle).Return(false, nil)
		repo.On("Create", mock.AnythingOfType("*user.User")).Return(nil)

		svc := NewService(repo)
		u, err := svc.Register(validReq)

		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "testuser", u.Handle)
		assert.Equal(t, "test@example.com", u.Email)
		assert.Equal(t, StatusActive, u.Status)
		assert.NotEmpty(t, u.PasswordHash)
		assert.NotEqual(t, validReq.Password, u.PasswordHash)
		assert.True(t, VerifyPassword(validReq.Password, u.PasswordHash))
		repo.AssertExpectations(t)
	})

	t.Run("terms not accepted", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		req := validReq
		req.AcceptTerms = false
		_, err := svc.Register(req)

		assert.ErrorIs(t, err, ErrTermsNotAccepted)
		repo.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("invalid handle", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		for _, handle := range []string{"ab", "has space", "bad!chars", ""} {
			req := validReq
			req.Handle = handle
			_, err := svc.Register(req)
			assert.ErrorIs(t, err, ErrInvalidHandle, "handle %q", handle)
		}
		repo.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("weak password", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		req := validReq
		req.Password = "alllowercase1"
		_, err := svc.Register(req)

		assert.ErrorIs(t, err, ErrWeakPassword)
		repo.AssertNotCalled(t, "ExistsByEmail", mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExistsByEmail", validReq.Email).Return(true, nil)

		svc := NewService(repo)
		_, err := svc.Register(validReq)

		assert.ErrorIs(t, err, ErrEmailExists)
		repo.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("duplicate handle", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ExistsByEmail", validReq.Email).Return(false, nil)
		repo.On("ExistsByHandle", validReq.Handle).Return(true, nil)

		svc := NewService(repo)
		_, err := svc.Register(validReq)

		assert.ErrorIs(t, err, ErrHandleExists)
		repo.AssertNotCalled(t, "Create", mock.Anything)
	})
}

func TestService_Authenticate(t *testing.T) {
	hash, err := HashPassword("Correct1password")
	require.NoError(t, err)

	activeUser := &User{
		Handle:       "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Status:       StatusActive,
	}

	t.Run("valid credentials", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmailAnyStatus", "alice@example.com").Return(activeUser, nil)

		svc := NewService(repo)
		u, err := svc.Authenticate("alice@example.com", "Correct1password")

		require.NoError(t, err)
		assert.Equal(t, "alice", u.Handle)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmailAnyStatus", "alice@example.com").Return(activeUser, nil)

		svc := NewService(repo)
		_, err := svc.Authenticate("alice@example.com", "Wrong1password")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email maps to the same error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmailAnyStatus", "nobody@example.com").Return(nil, ErrUserNotFound)

		svc := NewService(repo)
		_, err := svc.Authenticate("nobody@example.com", "Correct1password")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("suspended account", func(t *testing.T) {
		suspended := &User{
			Handle:       "bob",
			Email:        "bob@example.com",
			PasswordHash: hash,
			Status:       StatusSuspended,
		}
		repo := new(MockRepository)
		repo.On("FindByEmailAnyStatus", "bob@example.com").Return(suspended, nil)

		svc := NewService(repo)
		_, err := svc.Authenticate("bob@example.com", "Correct1password")

		assert.ErrorIs(t, err, ErrAccountNotActive)
	})

	t.Run("suspended account with wrong password stays generic", func(t *testing.T) {
		suspended := &User{
			Email:        "bob@example.com",
			PasswordHash: hash,
			Status:       StatusSuspended,
		}
		repo := new(MockRepository)
		repo.On("FindByEmailAnyStatus", "bob@example.com").Return(suspended, nil)

		svc := NewService(repo)
		_, err := svc.Authenticate("bob@example.com", "Wrong1password")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestService_Deactivate(t *testing.T) {
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("UpdateStatus", id, StatusDisabled).Return(nil)

	svc := NewService(repo)
	require.NoError(t, svc.Deactivate(id))
	repo.AssertExpectations(t)
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid password", "Str0ngpass", nil},
		{"too short", "Ab1", ErrWeakPassword},
		{"exactly seven chars", "Abcdef1", ErrWeakPassword},
		{"no uppercase", "str0ngpass", ErrWeakPassword},
		{"no lowercase", "STR0NGPASS", ErrWeakPassword},
		{"no digit", "Strongpass", ErrWeakPassword},
		{"unicode letters count", "Pässw0rd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckPasswordStrength(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	if VerifyPassword("whatever", "not-an-argon2-hash") {
		t.Errorf("VerifyPassword() should reject a malformed hash")
	}
	if VerifyPassword("whatever", "$argon2i$v=19$m=65536,t=2,p=2$c2FsdA$aGFzaA") {
		t.Errorf("VerifyPassword() should reject a non-argon2id variant")
	}
}
