package postgresql

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreateVersion creates a new extension version in the database.
// It generates a new UUID for the version ID if one is not set.
// Returns ErrAlreadyExists if the extension already has this version string,
// ErrInvalidInput if the extension does not exist.
func (em *entityManager) CreateVersion(ctx context.Context, v *models.ExtensionVersion) apperrors.Error {
	if v.VersionID == uuid.Nil {
		v.VersionID = uuid.New()
	}

	categories := pgtype.JSONB{}
	if err := categories.Set(v.Categories); err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	tags := pgtype.JSONB{}
	if err := tags.Set(v.Tags); err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}

	query := `
		INSERT INTO extension_versions
			(version_id, extension_id, version, preview, published_at,
			 display_name, description, categories, tags,
			 license, homepage, repository, bugs,
			 markdown, gallery_color, gallery_theme, qna,
			 extension_file_name, readme_file_name, icon_file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`

	_, err := em.q(ctx).ExecContext(ctx, query,
		v.VersionID, v.ExtensionID, v.Version, v.Preview, v.PublishedAt,
		v.DisplayName, v.Description, categories, tags,
		v.License, v.Homepage, v.Repository, v.Bugs,
		v.Markdown, v.GalleryColor, v.GalleryTheme, v.QnA,
		v.ExtensionFileName, v.ReadmeFileName, v.IconFileName)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			if pgErr.Code == "23505" { // unique constraint violation
				log.Ctx(ctx).Info().Str("version", v.Version).Msg("version already exists")
				return dberror.ErrAlreadyExists.Msg("version already exists")
			}
			if pgErr.Code == "23503" { // foreign key violation
				log.Ctx(ctx).Error().Str("extension_id", v.ExtensionID.String()).Msg("extension not found")
				return dberror.ErrInvalidInput.Msg("extension not found")
			}
		}
		log.Ctx(ctx).Error().Err(err).Str("version", v.Version).Msg("failed to insert version")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

const versionColumns = `version_id, extension_id, version, preview, published_at,
		display_name, description, categories, tags,
		license, homepage, repository, bugs,
		markdown, gallery_color, gallery_theme, qna,
		extension_file_name, readme_file_name, icon_file_name`

func scanVersion(row interface{ Scan(...any) error }, v *models.ExtensionVersion) error {
	categories := pgtype.JSONB{}
	tags := pgtype.JSONB{}
	err := row.Scan(&v.VersionID, &v.ExtensionID, &v.Version, &v.Preview, &v.PublishedAt,
		&v.DisplayName, &v.Description, &categories, &tags,
		&v.License, &v.Homepage, &v.Repository, &v.Bugs,
		&v.Markdown, &v.GalleryColor, &v.GalleryTheme, &v.QnA,
		&v.ExtensionFileName, &v.ReadmeFileName, &v.IconFileName)
	if err != nil {
		return err
	}
	if err := categories.AssignTo(&v.Categories); err != nil {
		return err
	}
	if err := tags.AssignTo(&v.Tags); err != nil {
		return err
	}
	return nil
}

// GetVersion retrieves one version of an extension by its version string.
// Returns ErrNotFound if no version matches, ErrIntegrity if more than one does.
func (em *entityManager) GetVersion(ctx context.Context, extensionID uuid.UUID, version string) (*models.ExtensionVersion, apperrors.Error) {
	query := `
		SELECT ` + versionColumns + `
		FROM extension_versions
		WHERE extension_id = $1 AND version = $2;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, extensionID, version)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version", version).Msg("failed to query version")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var found []*models.ExtensionVersion
	for rows.Next() {
		v := &models.ExtensionVersion{}
		if err := scanVersion(rows, v); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan version")
			return nil, dberror.ErrDatabase.Err(err)
		}
		found = append(found, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	switch len(found) {
	case 0:
		return nil, dberror.ErrNotFound.Msg("version not found")
	case 1:
		return found[0], nil
	default:
		log.Ctx(ctx).Error().Str("version", version).Int("count", len(found)).Msg("multiple rows share a unique version")
		return nil, dberror.ErrIntegrity.Msg("multiple rows share a unique version")
	}
}

// GetVersionByID retrieves a version by its primary key.
func (em *entityManager) GetVersionByID(ctx context.Context, versionID uuid.UUID) (*models.ExtensionVersion, apperrors.Error) {
	query := `
		SELECT ` + versionColumns + `
		FROM extension_versions
		WHERE version_id = $1;
	`

	v := &models.ExtensionVersion{}
	row := em.q(ctx).QueryRowContext(ctx, query, versionID)
	err := scanVersion(row, v)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("version not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to query version")
		return nil, dberror.ErrDatabase.Err(err)
	}

	return v, nil
}

// ListVersions returns all versions of an extension, newest published first.
func (em *entityManager) ListVersions(ctx context.Context, extensionID uuid.UUID) ([]*models.ExtensionVersion, apperrors.Error) {
	query := `
		SELECT ` + versionColumns + `
		FROM extension_versions
		WHERE extension_id = $1
		ORDER BY published_at DESC, version DESC;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, extensionID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to list versions")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var versions []*models.ExtensionVersion
	for rows.Next() {
		v := &models.ExtensionVersion{}
		if err := scanVersion(rows, v); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan version")
			return nil, dberror.ErrDatabase.Err(err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return versions, nil
}

// VersionExists reports whether the extension already has this version string.
func (em *entityManager) VersionExists(ctx context.Context, extensionID uuid.UUID, version string) (bool, apperrors.Error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM extension_versions
			WHERE extension_id = $1 AND version = $2
		);
	`

	var exists bool
	row := em.q(ctx).QueryRowContext(ctx, query, extensionID, version)
	if err := row.Scan(&exists); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version", version).Msg("failed to check version existence")
		return false, dberror.ErrDatabase.Err(err)
	}
	return exists, nil
}

// CreateReference records that a version references another extension.
// Inserting the same reference twice is a no-op.
func (em *entityManager) CreateReference(ctx context.Context, versionID uuid.UUID, targetExtensionID uuid.UUID, kind models.ReferenceKind) apperrors.Error {
	query := `
		INSERT INTO version_references (version_id, extension_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (version_id, extension_id, kind) DO NOTHING;
	`

	_, err := em.q(ctx).ExecContext(ctx, query, versionID, targetExtensionID, kind)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23503" {
			return dberror.ErrInvalidInput.Msg("version or extension not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to insert reference")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// ListReferences returns the reference targets of a version for one kind,
// joined to their publishers, ordered by publisher then extension name.
func (em *entityManager) ListReferences(ctx context.Context, versionID uuid.UUID, kind models.ReferenceKind) ([]models.RefTarget, apperrors.Error) {
	query := `
		SELECT p.name, e.name
		FROM version_references r
		JOIN extensions e ON e.extension_id = r.extension_id
		JOIN publishers p ON p.publisher_id = e.publisher_id
		WHERE r.version_id = $1 AND r.kind = $2
		ORDER BY p.name, e.name;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, versionID, kind)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to list references")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var targets []models.RefTarget
	for rows.Next() {
		var t models.RefTarget
		if err := rows.Scan(&t.PublisherName, &t.ExtensionName); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan reference")
			return nil, dberror.ErrDatabase.Err(err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return targets, nil
}
