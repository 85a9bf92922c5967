package postgresql

import (
	"context"
	"database/sql"

	"github.com/golang/snappy"
	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreateFileResource stores a file payload attached to a version. Content is
// snappy-compressed at rest. Returns ErrAlreadyExists if the version already
// has a file of this kind, ErrInvalidInput if the version does not exist.
func (em *entityManager) CreateFileResource(ctx context.Context, f *models.FileResource) apperrors.Error {
	if f.FileID == uuid.Nil {
		f.FileID = uuid.New()
	}

	compressed := snappy.Encode(nil, f.Content)

	query := `
		INSERT INTO file_resources (file_id, version_id, kind, content_type, content)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := em.q(ctx).ExecContext(ctx, query, f.FileID, f.VersionID, f.Kind, f.ContentType, compressed)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			if pgErr.Code == "23505" { // unique constraint violation
				log.Ctx(ctx).Info().Str("kind", string(f.Kind)).Str("version_id", f.VersionID.String()).Msg("file resource already exists")
				return dberror.ErrAlreadyExists.Msg("file resource already exists")
			}
			if pgErr.Code == "23503" { // foreign key violation
				return dberror.ErrInvalidInput.Msg("version not found")
			}
		}
		log.Ctx(ctx).Error().Err(err).Str("kind", string(f.Kind)).Msg("failed to insert file resource")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetFileResource retrieves the file of the given kind attached to a version,
// decompressed.
func (em *entityManager) GetFileResource(ctx context.Context, versionID uuid.UUID, kind models.FileKind) (*models.FileResource, apperrors.Error) {
	query := `
		SELECT file_id, version_id, kind, content_type, content
		FROM file_resources
		WHERE version_id = $1 AND kind = $2;
	`

	f := &models.FileResource{}
	var compressed []byte
	row := em.q(ctx).QueryRowContext(ctx, query, versionID, kind)
	err := row.Scan(&f.FileID, &f.VersionID, &f.Kind, &f.ContentType, &compressed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("file not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("kind", string(kind)).Msg("failed to query file resource")
		return nil, dberror.ErrDatabase.Err(err)
	}

	content, err := snappy.Decode(nil, compressed)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("file_id", f.FileID.String()).Msg("failed to decompress file resource")
		return nil, dberror.ErrIntegrity.Msg("stored file is corrupted")
	}
	f.Content = content

	return f, nil
}
