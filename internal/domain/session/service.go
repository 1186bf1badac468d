package session

import (
	"context"
	"crypto/rand"
	"crypto/sha3"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nexauth/nexauth/internal/cache"
)

var (
	// ErrInvalidSession is returned when no live session matches the token
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession is returned when the session row exists but is past
	// its expiry. Once the sweeper removes the row the same token yields
	// ErrInvalidSession instead.
	ErrExpiredSession = errors.New("session expired")
	// ErrReplayDetected is returned when an already-rotated refresh token is presented
	ErrReplayDetected = errors.New("refresh token replay detected")
)

// Service interface for session operations
type Service interface {
	// Create opens a session and returns it with the plaintext session and
	// refresh tokens. The tokens are never recoverable afterwards.
	Create(userID uuid.UUID, cluster string, scopes []string, ip, userAgent string, ttl time.Duration) (*Session, string, string, error)
	// ValidateToken resolves a live session from an opaque session token
	ValidateToken(sessionToken string) (*Session, error)
	// Rotate exchanges a single-use refresh token for a replacement session
	// and fresh tokens. Replay of a rotated token revokes the whole
	// user+cluster session family.
	Rotate(refreshToken string, ttl time.Duration) (*Session, string, string, error)
	// Delete removes the session for a session token. Idempotent.
	Delete(sessionToken string) error
	// RevokeByRefreshToken removes the session backing a refresh token and
	// marks its ID revoked so outstanding access tokens can be rejected.
	RevokeByRefreshToken(refreshToken string) (*Session, error)
	RevokeAllForUserCluster(userID uuid.UUID, cluster string) error
	SweepExpired() (int64, error)
}

type service struct {
	repo            Repository
	revocationCache *cache.RevocationCache
	rotationLedger  *cache.RotationLedger
}

// NewService creates a session Service without Redis-backed caches.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// NewServiceWithCaches creates a Service with optional revocation and
// rotation caches. Either may be nil.
func NewServiceWithCaches(repo Repository, revocationCache *cache.RevocationCache, rotationLedger *cache.RotationLedger) Service {
	return &service{repo: repo, revocationCache: revocationCache, rotationLedger: rotationLedger}
}

// generateToken generates an opaque random token of n bytes
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken hashes an opaque token using SHA3-256
func HashToken(token string) string {
	h := sha3.Sum256([]byte(token))
	return base64.RawStdEncoding.EncodeToString(h[:])
}

func splitScopes(s string) []string {
	return strings.Fields(s)
}

func (s *service) Create(userID uuid.UUID, cluster string, scopes []string, ip, userAgent string, ttl time.Duration) (*Session, string, string, error) {
	sessionToken, err := generateToken(32)
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, err := generateToken(48)
	if err != nil {
		return nil, "", "", err
	}

	sess := &Session{
		UserID:        userID,
		Cluster:       cluster,
		TokenHash:     HashToken(sessionToken),
		RefreshHash:   HashToken(refreshToken),
		GrantedScopes: strings.Join(scopes, " "),
		ExpiresAt:     time.Now().UTC().Add(ttl),
		IPAddress:     ip,
		UserAgent:     userAgent,
		LastUsedAt:    time.Now().UTC(),
	}
	sess.ID = uuid.New()

	if err := s.repo.Create(sess); err != nil {
		return nil, "", "", err
	}

	return sess, sessionToken, refreshToken, nil
}

func (s *service) ValidateToken(sessionToken string) (*Session, error) {
	sess, err := s.repo.FindByTokenHash(HashToken(sessionToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if !sess.ExpiresAt.After(time.Now().UTC()) {
		return nil, ErrExpiredSession
	}

	if err := s.repo.UpdateLastUsed(sess.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	return sess, nil
}

func (s *service) Rotate(refreshToken string, ttl time.Duration) (*Session, string, string, error) {
	oldHash := HashToken(refreshToken)

	old, err := s.repo.FindByRefreshHash(oldHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", s.handleRotationMiss(oldHash)
		}
		return nil, "", "", err
	}
	if !old.ExpiresAt.After(time.Now().UTC()) {
		return nil, "", "", ErrExpiredSession
	}

	newSessionToken, err := generateToken(32)
	if err != nil {
		return nil, "", "", err
	}
	newRefreshToken, err := generateToken(48)
	if err != nil {
		return nil, "", "", err
	}

	replacement := &Session{
		UserID:        old.UserID,
		Cluster:       old.Cluster,
		TokenHash:     HashToken(newSessionToken),
		RefreshHash:   HashToken(newRefreshToken),
		GrantedScopes: old.GrantedScopes,
		ExpiresAt:     time.Now().UTC().Add(ttl),
		IPAddress:     old.IPAddress,
		UserAgent:     old.UserAgent,
		LastUsedAt:    time.Now().UTC(),
	}
	replacement.ID = uuid.New()

	rotated, err := s.repo.Rotate(oldHash, replacement)
	if err != nil {
		return nil, "", "", err
	}
	if !rotated {
		// Lost the race: someone already rotated this token
		s.revokeFamily(old.UserID, old.Cluster)
		slog.Warn("Refresh token replay detected",
			"user_id", old.UserID.String(), "cluster", old.Cluster)
		return nil, "", "", ErrReplayDetected
	}

	if s.rotationLedger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.rotationLedger.Record(ctx, oldHash, old.UserID.String(), old.Cluster, ttl)
	}

	return replacement, newSessionToken, newRefreshToken, nil
}

// handleRotationMiss distinguishes a replayed refresh token from one that
// never existed. Attribution needs the rotation ledger; without it the
// caller still gets a failure, just not family revocation.
func (s *service) handleRotationMiss(refreshHash string) error {
	if s.rotationLedger == nil {
		return ErrInvalidSession
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userIDStr, cluster, found := s.rotationLedger.Lookup(ctx, refreshHash)
	if !found {
		return ErrInvalidSession
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return ErrReplayDetected
	}

	s.revokeFamily(userID, cluster)
	slog.Warn("Refresh token replay detected",
		"user_id", userIDStr, "cluster", cluster)
	return ErrReplayDetected
}

func (s *service) revokeFamily(userID uuid.UUID, cluster string) {
	if err := s.RevokeAllForUserCluster(userID, cluster); err != nil {
		slog.Warn("Failed to revoke session family",
			"error", err, "user_id", userID.String(), "cluster", cluster)
	}
}

func (s *service) Delete(sessionToken string) error {
	// Deleting an already-deleted session is not an error
	_, err := s.repo.DeleteByTokenHash(HashToken(sessionToken))
	return err
}

func (s *service) RevokeByRefreshToken(refreshToken string) (*Session, error) {
	sess, err := s.repo.FindByRefreshHash(HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if err := s.repo.DeleteByID(sess.ID); err != nil {
		return nil, err
	}

	s.markRevoked(sess)
	return sess, nil
}

func (s *service) RevokeAllForUserCluster(userID uuid.UUID, cluster string) error {
	if s.revocationCache != nil {
		sessions, err := s.repo.FindAllForUserCluster(userID, cluster)
		if err == nil {
			for i := range sessions {
				s.markRevoked(&sessions[i])
			}
		}
	}

	n, err := s.repo.DeleteAllForUserCluster(userID, cluster)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Revoked session family",
			"user_id", userID.String(), "cluster", cluster, "count", n)
	}
	return nil
}

func (s *service) SweepExpired() (int64, error) {
	return s.repo.DeleteExpired(time.Now().UTC())
}

// markRevoked records the session ID so access tokens carrying it can be
// rejected before their natural expiry.
func (s *service) markRevoked(sess *Session) {
	if s.revocationCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Hour
	}
	s.revocationCache.MarkRevoked(ctx, sess.ID.String(), ttl)
}
