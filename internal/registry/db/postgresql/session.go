package postgresql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreateUserSession stores a new login session.
func (em *entityManager) CreateUserSession(ctx context.Context, s *models.UserSession) apperrors.Error {
	if s.SessionID == uuid.Nil {
		s.SessionID = uuid.New()
	}

	query := `
		INSERT INTO user_sessions (session_id, user_name, last_used)
		VALUES ($1, $2, $3)
		RETURNING created_at;
	`

	row := em.q(ctx).QueryRowContext(ctx, query, s.SessionID, s.UserName, s.LastUsed)
	err := row.Scan(&s.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return dberror.ErrAlreadyExists.Msg("session already exists")
		}
		log.Ctx(ctx).Error().Err(err).Str("session_id", s.SessionID.String()).Msg("failed to insert session")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetUserSession retrieves a session by its ID.
func (em *entityManager) GetUserSession(ctx context.Context, sessionID uuid.UUID) (*models.UserSession, apperrors.Error) {
	query := `
		SELECT session_id, user_name, created_at, last_used
		FROM user_sessions
		WHERE session_id = $1;
	`

	s := &models.UserSession{}
	row := em.q(ctx).QueryRowContext(ctx, query, sessionID)
	err := row.Scan(&s.SessionID, &s.UserName, &s.CreatedAt, &s.LastUsed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("session not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to query session")
		return nil, dberror.ErrDatabase.Err(err)
	}

	return s, nil
}

// TouchUserSession updates the last-used timestamp of a session.
func (em *entityManager) TouchUserSession(ctx context.Context, sessionID uuid.UUID, usedAt time.Time) apperrors.Error {
	query := `
		UPDATE user_sessions
		SET last_used = $2
		WHERE session_id = $1;
	`

	result, err := em.q(ctx).ExecContext(ctx, query, sessionID, usedAt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to touch session")
		return dberror.ErrDatabase.Err(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("session not found")
	}
	return nil
}

// DeleteUserSession removes a session.
func (em *entityManager) DeleteUserSession(ctx context.Context, sessionID uuid.UUID) apperrors.Error {
	query := `
		DELETE FROM user_sessions
		WHERE session_id = $1;
	`

	result, err := em.q(ctx).ExecContext(ctx, query, sessionID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to delete session")
		return dberror.ErrDatabase.Err(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("session not found")
	}
	return nil
}

// DeleteExpiredUserSessions removes every session whose last use predates the
// cutoff and returns how many were removed.
func (em *entityManager) DeleteExpiredUserSessions(ctx context.Context, cutoff time.Time) (int64, apperrors.Error) {
	query := `
		DELETE FROM user_sessions
		WHERE last_used < $1;
	`

	result, err := em.q(ctx).ExecContext(ctx, query, cutoff)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to delete expired sessions")
		return 0, dberror.ErrDatabase.Err(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, dberror.ErrDatabase.Err(err)
	}
	return n, nil
}
