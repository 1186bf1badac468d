package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// AccessTokenClaims wraps a verified token and exposes the claims the
// service cares about.
type AccessTokenClaims struct {
	Token jwt.Token
}

func (c *AccessTokenClaims) Subject() string {
	sub, _ := c.Token.Subject()
	return sub
}

func (c *AccessTokenClaims) Audience() []string {
	aud, _ := c.Token.Audience()
	return aud
}

func (c *AccessTokenClaims) Issuer() string {
	iss, _ := c.Token.Issuer()
	return iss
}

func (c *AccessTokenClaims) IssuedAt() time.Time {
	iat, _ := c.Token.IssuedAt()
	return iat
}

func (c *AccessTokenClaims) Expiration() time.Time {
	exp, _ := c.Token.Expiration()
	return exp
}

func (c *AccessTokenClaims) JTI() string {
	jti, _ := c.Token.JwtID()
	return jti
}

func (c *AccessTokenClaims) getString(name string) string {
	var v any
	if c.Token.Get(name, &v) == nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (c *AccessTokenClaims) getBool(name string) bool {
	var v any
	if c.Token.Get(name, &v) == nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetSid returns the session ID claim
func (c *AccessTokenClaims) GetSid() string { return c.getString("sid") }

// GetCluster returns the cluster claim
func (c *AccessTokenClaims) GetCluster() string { return c.getString("cluster") }

// GetRole returns the role claim
func (c *AccessTokenClaims) GetRole() string { return c.getString("role") }

// GetScope returns the space-separated scope claim
func (c *AccessTokenClaims) GetScope() string { return c.getString("scope") }

// IsCreator returns the creator flag claim
func (c *AccessTokenClaims) IsCreator() bool { return c.getBool("is_creator") }

// IsVerified returns the verified flag claim
func (c *AccessTokenClaims) IsVerified() bool { return c.getBool("is_verified") }

// GetPermissions returns the permission list claim
func (c *AccessTokenClaims) GetPermissions() []string {
	var v any
	if c.Token.Get("permissions", &v) != nil {
		return nil
	}
	switch perms := v.(type) {
	case []string:
		return perms
	case []any:
		out := make([]string, 0, len(perms))
		for _, p := range perms {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validate checks expiration, issuer and audience
func (c *AccessTokenClaims) Validate(issuer string, expectedAudience []string) error {
	exp := c.Expiration()
	if exp.IsZero() {
		return errors.New("token missing expiration claim")
	}
	if time.Now().After(exp) {
		return ErrTokenExpired
	}

	iss := c.Issuer()
	if issuer != "" && iss != issuer {
		return errors.New("token issuer mismatch")
	}

	aud := c.Audience()
	if len(expectedAudience) > 0 {
		audMatch := false
		for _, expected := range expectedAudience {
			if slices.Contains(aud, expected) {
				audMatch = true
				break
			}
		}
		if !audMatch {
			return errors.New("token audience mismatch")
		}
	}

	return nil
}

// Identity represents the authenticated caller attached to a request
type Identity struct {
	UserID      string
	SessionID   string
	Cluster     string
	Role        string
	Permissions []string
	IsCreator   bool
	IsVerified  bool
}

// HasPermission reports whether the identity carries the permission
func (i *Identity) HasPermission(perm string) bool {
	return slices.Contains(i.Permissions, perm)
}
