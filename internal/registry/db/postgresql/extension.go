package postgresql

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreateExtension creates a new extension in the database.
// It generates a new UUID for the extension ID if one is not set.
// Returns ErrAlreadyExists if the publisher already has an extension with the
// same name, ErrInvalidInput if the publisher does not exist.
func (em *entityManager) CreateExtension(ctx context.Context, e *models.Extension) apperrors.Error {
	extensionID := e.ExtensionID
	if extensionID == uuid.Nil {
		extensionID = uuid.New()
	}

	query := `
		INSERT INTO extensions (extension_id, publisher_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (publisher_id, name) DO NOTHING
		RETURNING extension_id, created_at;
	`

	row := em.q(ctx).QueryRowContext(ctx, query, extensionID, e.PublisherID, e.Name)
	err := row.Scan(&e.ExtensionID, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("name", e.Name).Msg("extension already exists")
			return dberror.ErrAlreadyExists.Msg("extension already exists")
		}
		if pgErr, ok := err.(*pgconn.PgError); ok {
			if pgErr.Code == "23503" { // foreign key violation
				log.Ctx(ctx).Error().Str("publisher_id", e.PublisherID.String()).Msg("publisher not found")
				return dberror.ErrInvalidInput.Msg("publisher not found")
			}
		}
		log.Ctx(ctx).Error().Err(err).Str("name", e.Name).Msg("failed to insert extension")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

func scanExtension(rows interface{ Scan(...any) error }, e *models.Extension) error {
	var latest sql.NullString
	err := rows.Scan(&e.ExtensionID, &e.PublisherID, &e.Name, &latest, &e.AverageRating, &e.CreatedAt)
	if err != nil {
		return err
	}
	if latest.Valid {
		id, perr := uuid.Parse(latest.String)
		if perr != nil {
			return perr
		}
		e.LatestVersionID = id
	} else {
		e.LatestVersionID = uuid.Nil
	}
	return nil
}

const extensionColumns = `extension_id, publisher_id, name, latest_version_id, average_rating, created_at`

// GetExtension retrieves an extension by publisher and name.
// Returns ErrNotFound if no extension matches, ErrIntegrity if more than one does.
func (em *entityManager) GetExtension(ctx context.Context, publisherID uuid.UUID, name string) (*models.Extension, apperrors.Error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extensions
		WHERE publisher_id = $1 AND name = $2;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, publisherID, name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("name", name).Msg("failed to query extension")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var found []*models.Extension
	for rows.Next() {
		e := &models.Extension{}
		if err := scanExtension(rows, e); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan extension")
			return nil, dberror.ErrDatabase.Err(err)
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	switch len(found) {
	case 0:
		return nil, dberror.ErrNotFound.Msg("extension not found")
	case 1:
		return found[0], nil
	default:
		log.Ctx(ctx).Error().Str("name", name).Int("count", len(found)).Msg("multiple extensions share a unique name")
		return nil, dberror.ErrIntegrity.Msg("multiple extensions share a unique name")
	}
}

// GetExtensionForUpdate retrieves an extension by publisher and name and
// locks its row until the surrounding transaction ends. Concurrent publishes
// of the same extension serialize on this lock, so the latest pointer is
// always decided against a stable version list.
func (em *entityManager) GetExtensionForUpdate(ctx context.Context, publisherID uuid.UUID, name string) (*models.Extension, apperrors.Error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extensions
		WHERE publisher_id = $1 AND name = $2
		FOR UPDATE;
	`

	e := &models.Extension{}
	row := em.q(ctx).QueryRowContext(ctx, query, publisherID, name)
	err := scanExtension(row, e)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("extension not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("name", name).Msg("failed to lock extension")
		return nil, dberror.ErrDatabase.Err(err)
	}

	return e, nil
}

// GetExtensionByID retrieves an extension by its primary key.
func (em *entityManager) GetExtensionByID(ctx context.Context, extensionID uuid.UUID) (*models.Extension, apperrors.Error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extensions
		WHERE extension_id = $1;
	`

	e := &models.Extension{}
	row := em.q(ctx).QueryRowContext(ctx, query, extensionID)
	err := scanExtension(row, e)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("extension not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to query extension")
		return nil, dberror.ErrDatabase.Err(err)
	}

	return e, nil
}

// ListExtensionsByPublisher returns all extensions of a publisher ordered by name.
func (em *entityManager) ListExtensionsByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.Extension, apperrors.Error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extensions
		WHERE publisher_id = $1
		ORDER BY name;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, publisherID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("publisher_id", publisherID.String()).Msg("failed to list extensions")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	return collectExtensions(ctx, rows)
}

// ListExtensions returns every extension in the registry ordered by name.
// Used by the search index rebuild.
func (em *entityManager) ListExtensions(ctx context.Context) ([]*models.Extension, apperrors.Error) {
	query := `
		SELECT ` + extensionColumns + `
		FROM extensions
		ORDER BY name;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list extensions")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	return collectExtensions(ctx, rows)
}

func collectExtensions(ctx context.Context, rows *sql.Rows) ([]*models.Extension, apperrors.Error) {
	var extensions []*models.Extension
	for rows.Next() {
		e := &models.Extension{}
		if err := scanExtension(rows, e); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan extension")
			return nil, dberror.ErrDatabase.Err(err)
		}
		extensions = append(extensions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return extensions, nil
}

// SetLatestVersion points the extension's latest pointer at the given version.
func (em *entityManager) SetLatestVersion(ctx context.Context, extensionID uuid.UUID, versionID uuid.UUID) apperrors.Error {
	query := `
		UPDATE extensions
		SET latest_version_id = $2
		WHERE extension_id = $1;
	`

	result, err := em.q(ctx).ExecContext(ctx, query, extensionID, versionID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23503" {
			return dberror.ErrInvalidInput.Msg("version not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to update latest version")
		return dberror.ErrDatabase.Err(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("extension not found")
	}
	return nil
}

// SetAverageRating stores the recomputed average review rating.
func (em *entityManager) SetAverageRating(ctx context.Context, extensionID uuid.UUID, rating float64) apperrors.Error {
	query := `
		UPDATE extensions
		SET average_rating = $2
		WHERE extension_id = $1;
	`

	result, err := em.q(ctx).ExecContext(ctx, query, extensionID, rating)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to update average rating")
		return dberror.ErrDatabase.Err(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("extension not found")
	}
	return nil
}
