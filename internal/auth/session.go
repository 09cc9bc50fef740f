package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for expired, malformed, or forged tokens.
var ErrInvalidSession = errors.New("invalid session")

// Session is the authenticated caller attached to a request context.
// Admin is minted server-side when the session token is issued; clients
// cannot grant it to themselves.
type Session struct {
	Identity
	Admin bool
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Name          string `json:"name"`
	Email         string `json:"email"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Admin         bool   `json:"admin"`
}

// Sessions mints and verifies the portal's session tokens.
type Sessions struct {
	secret      []byte
	ttl         time.Duration
	adminDomain string
	now         func() time.Time
}

// NewSessions constructs a Sessions manager. adminDomain is the email
// suffix whose holders receive the admin claim.
func NewSessions(secret string, ttl time.Duration, adminDomain string) *Sessions {
	return &Sessions{
		secret:      []byte(secret),
		ttl:         ttl,
		adminDomain: adminDomain,
		now:         time.Now,
	}
}

// Mint issues a signed session token for the identity. The admin claim is
// decided here, once, from the email domain; verification later trusts
// only the signed claim.
func (s *Sessions) Mint(identity Identity) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:          identity.DisplayName,
		Email:         identity.Email,
		Picture:       identity.PhotoURL,
		EmailVerified: identity.EmailVerified,
		Admin:         s.IsAdminEmail(identity.Email),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and reconstructs the session.
func (s *Sessions) Verify(token string) (Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}
	if claims.Subject == "" {
		return Session{}, ErrInvalidSession
	}

	return Session{
		Identity: Identity{
			ID:            claims.Subject,
			DisplayName:   claims.Name,
			Email:         claims.Email,
			PhotoURL:      claims.Picture,
			EmailVerified: claims.EmailVerified,
		},
		Admin: claims.Admin,
	}, nil
}

// IsAdminEmail reports whether an email belongs to the admin domain.
func (s *Sessions) IsAdminEmail(email string) bool {
	return s.adminDomain != "" && strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.adminDomain))
}
