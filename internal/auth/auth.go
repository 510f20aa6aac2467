//go:generate go run go.uber.org/mock/mockgen -source=auth.go -destination=../mocks/mock_auth.go -package=mocks

// Package auth resolves bearer credentials of incoming connections into store-backed identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-chat/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrAuthenticationRequired = errors.New("authentication token required")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrUserNotFound           = errors.New("user not found in database")
)

// Identity is the authenticated user attached to a connection for its whole lifetime
type Identity struct {
	ID    int64
	Email string
	Role  storage.Role
}

// Claims is what a Verifier extracts from a valid token
type Claims struct {
	Subject string
	Email   string
}

// Verifier checks an opaque bearer token
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// UserFinder looks users up by verified email
type UserFinder interface {
	UserByEmail(ctx context.Context, email string) (storage.User, error)
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Secret  string        `env:"JWT_SECRET,required"`
	Issuer  string        `env:"JWT_ISSUER"`
	Timeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"5s"`
}

type Authenticator struct {
	logger   *zap.SugaredLogger
	verifier Verifier
	users    UserFinder
	timeout  time.Duration
}

// NewAuthenticator returns Authenticator bounding every verifier call by timeout
func NewAuthenticator(logger *zap.SugaredLogger, verifier Verifier, users UserFinder, timeout time.Duration) *Authenticator {
	return &Authenticator{
		logger:   logger,
		verifier: verifier,
		users:    users,
		timeout:  timeout,
	}
}

// Authenticate resolves token into Identity.
// Returned errors wrap one of ErrAuthenticationRequired, ErrAuthenticationFailed or ErrUserNotFound.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrAuthenticationRequired
	}

	claims, err := a.verify(ctx, token)
	if err != nil {
		a.logger.Debugf("Token verification failed: %v", err)
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	user, err := a.users.UserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return Identity{}, ErrUserNotFound
		}
		a.logger.Errorf("Looking up user %s: %v", claims.Email, err)
		return Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	return Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

// verify runs the verifier on its own goroutine so a verifier ignoring ctx still cannot hang the caller
func (a *Authenticator) verify(ctx context.Context, token string) (Claims, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	type result struct {
		claims Claims
		err    error
	}
	done := make(chan result, 1)
	go func() {
		c, err := a.verifier.Verify(ctx, token)
		done <- result{claims: c, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.claims.Email == "" {
			return Claims{}, errors.New("token carries no email")
		}
		return r.claims, r.err
	case <-ctx.Done():
		return Claims{}, ctx.Err()
	}
}

// Reason returns the text sent to a client whose connection is rejected
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "Authentication token required"
	case errors.Is(err, ErrUserNotFound):
		return "User not found in database"
	default:
		return "Authentication failed"
	}
}

// TokenFromRequest extracts bearer token from "token" query parameter or Authorization header
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
