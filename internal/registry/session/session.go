package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

var (
	// ErrUnauthorized covers bad credentials, missing sessions and expired
	// sessions alike. The response never says which.
	ErrUnauthorized apperrors.Error = apperrors.New("invalid credentials or session").SetStatusCode(http.StatusUnauthorized)
)

// Manager creates, validates and removes login sessions.
type Manager struct {
	userName     string
	passwordHash string
	expiration   time.Duration
}

// NewManager builds a session manager from the server's auth configuration.
func NewManager(cfg *config.ConfigParam) *Manager {
	return &Manager{
		userName:     cfg.Auth.UserName,
		passwordHash: cfg.Auth.PasswordHash,
		expiration:   cfg.Session.GetExpirationTimeOrDefault(),
	}
}

// Expiration returns the configured session inactivity window.
func (m *Manager) Expiration() time.Duration {
	return m.expiration
}

// Login verifies credentials and creates a session. Failures are uniform:
// unknown user and wrong password are indistinguishable to the caller.
func (m *Manager) Login(ctx context.Context, userName, password string) (*models.UserSession, apperrors.Error) {
	if m.userName == "" || m.passwordHash == "" {
		log.Ctx(ctx).Warn().Msg("login attempted but no user is configured")
		return nil, ErrUnauthorized
	}
	if userName != m.userName || !VerifyPassword(password, m.passwordHash) {
		return nil, ErrUnauthorized
	}

	s := &models.UserSession{
		UserName: userName,
		LastUsed: time.Now().UTC(),
	}
	if err := db.DB(ctx).CreateUserSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Authenticate resolves a session ID to its user, rejecting sessions past
// the inactivity window, and refreshes the last-used timestamp.
func (m *Manager) Authenticate(ctx context.Context, sessionID uuid.UUID) (string, apperrors.Error) {
	store := db.DB(ctx)

	s, err := store.GetUserSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return "", ErrUnauthorized
		}
		return "", err
	}

	now := time.Now().UTC()
	if now.Sub(s.LastUsed) > m.expiration {
		// Expired but not yet reaped. Drop it now; double deletion by the
		// reaper is a no-op.
		if derr := store.DeleteUserSession(ctx, sessionID); derr != nil && !errors.Is(derr, dberror.ErrNotFound) {
			log.Ctx(ctx).Warn().Err(derr).Str("session_id", sessionID.String()).Msg("failed to delete expired session")
		}
		return "", ErrUnauthorized
	}

	if err := store.TouchUserSession(ctx, sessionID, now); err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return "", err
	}
	return s.UserName, nil
}

// Logout removes a session. Logging out an unknown session is not an error.
func (m *Manager) Logout(ctx context.Context, sessionID uuid.UUID) apperrors.Error {
	err := db.DB(ctx).DeleteUserSession(ctx, sessionID)
	if err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return err
	}
	return nil
}
