// Package session holds the bearer token and signed-in user that the API
// client and the scheme workflow read from, replacing ambient storage.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	// ErrUnauthenticated is returned when no token is held.
	ErrUnauthenticated = errors.New("not authenticated: no bearer token")

	// ErrExpired is returned once the held token has passed its expiry.
	ErrExpired = errors.New("session expired")
)

// Role is a user's permission tier.
type Role string

const (
	Viewer   Role = "viewer"
	Verifier Role = "verifier"
	Creator  Role = "creator"
	Admin    Role = "admin"
)

var roleRank = map[Role]int{
	Viewer:   1,
	Verifier: 2,
	Creator:  3,
	Admin:    4,
}

// Rank returns the tier of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

// ParseRole normalizes a role name. Empty input yields Viewer.
func ParseRole(name string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	if r == "" {
		return Viewer, nil
	}
	if r.Rank() == 0 {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return r, nil
}

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// HasRole reports whether the user's tier is at least required.
func (u User) HasRole(required Role) bool {
	return u.Role.Rank() > 0 && u.Role.Rank() >= required.Rank()
}

// Session is the auth state injected into callers.
type Session interface {
	Token() (string, error)
	CurrentUser() (User, bool)
	OnExpire(fn func())
}

// Claims is the subset of token claims the engine reads.
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// TokenSession is an in-memory Session. Expiry is checked lazily on every
// Token call and the OnExpire callbacks fire once.
type TokenSession struct {
	mu        sync.Mutex
	token     string
	user      User
	signedIn  bool
	expiresAt time.Time
	callbacks []func()
	now       func() time.Time
}

// New returns a session holding an opaque token for user. A zero expiry
// never expires.
func New(token string, user User, expiresAt time.Time) *TokenSession {
	s := &TokenSession{now: time.Now}
	s.SignIn(token, user, expiresAt)
	return s
}

// FromToken builds a session from a JWT without verifying its signature,
// which is the backend's job. The user and expiry come from the claims;
// missing names fall back to the subject.
func FromToken(token string) (*TokenSession, error) {
	claims := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, err
	}
	user := User{ID: claims.ID, Name: claims.Name, Email: claims.Email, Role: role}
	if user.ID == "" {
		user.ID = claims.Subject
	}
	if user.Name == "" {
		user.Name = user.ID
	}
	var expiresAt time.Time
	if claims.ExpiresAt > 0 {
		expiresAt = time.Unix(claims.ExpiresAt, 0)
	}
	return New(token, user, expiresAt), nil
}

// Anonymous returns a session with no token.
func Anonymous() *TokenSession {
	return &TokenSession{now: time.Now}
}

// SignIn replaces the held token and user.
func (s *TokenSession) SignIn(token string, user User, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.signedIn = token != ""
	s.expiresAt = expiresAt
}

// SignOut drops the token without firing the expiry callbacks.
func (s *TokenSession) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = User{}
	s.signedIn = false
}

// Token returns the bearer token.
func (s *TokenSession) Token() (string, error) {
	s.mu.Lock()
	if !s.signedIn {
		s.mu.Unlock()
		return "", ErrUnauthenticated
	}
	if s.expiresAt.IsZero() || s.now().Before(s.expiresAt) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.token = ""
	s.user = User{}
	s.signedIn = false
	callbacks := append([]func(){}, s.callbacks...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return "", ErrExpired
}

// CurrentUser returns the signed-in user.
func (s *TokenSession) CurrentUser() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.signedIn
}

// OnExpire registers a callback run when Token detects expiry.
func (s *TokenSession) OnExpire(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Require returns the signed-in user when it holds at least role.
func Require(s Session, role Role) (User, error) {
	user, ok := s.CurrentUser()
	if !ok {
		return User{}, ErrUnauthenticated
	}
	if !user.HasRole(role) {
		return User{}, &ForbiddenError{User: user, Required: role}
	}
	return user, nil
}

// ForbiddenError reports a role check failure.
type ForbiddenError struct {
	User     User
	Required Role
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %s has role %s, %s required", e.User.Name, e.User.Role, e.Required)
}
