package postgresql

import (
	"context"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

const (
	defaultSearchSize = 18
	maxSearchSize     = 100
)

// UpsertSearchDocument writes the search projection row of an extension.
// Last write wins; concurrent publishes of the same extension converge on
// whichever row lands last.
func (em *entityManager) UpsertSearchDocument(ctx context.Context, doc *models.SearchDocument) apperrors.Error {
	categories := pgtype.JSONB{}
	if err := categories.Set(doc.Categories); err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	tags := pgtype.JSONB{}
	if err := tags.Set(doc.Tags); err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}

	query := `
		INSERT INTO search_documents
			(extension_id, publisher_name, extension_name, version, icon_file_name,
			 display_name, description, categories, tags, average_rating, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (extension_id) DO UPDATE SET
			publisher_name = EXCLUDED.publisher_name,
			extension_name = EXCLUDED.extension_name,
			version        = EXCLUDED.version,
			icon_file_name = EXCLUDED.icon_file_name,
			display_name   = EXCLUDED.display_name,
			description    = EXCLUDED.description,
			categories     = EXCLUDED.categories,
			tags           = EXCLUDED.tags,
			average_rating = EXCLUDED.average_rating,
			updated_at     = EXCLUDED.updated_at;
	`

	_, err := em.q(ctx).ExecContext(ctx, query,
		doc.ExtensionID, doc.PublisherName, doc.ExtensionName, doc.Version, doc.IconFileName,
		doc.DisplayName, doc.Description, categories, tags, doc.AverageRating, doc.UpdatedAt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("extension_id", doc.ExtensionID.String()).Msg("failed to upsert search document")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// TruncateSearchDocuments clears the search projection ahead of a rebuild.
func (em *entityManager) TruncateSearchDocuments(ctx context.Context) apperrors.Error {
	_, err := em.q(ctx).ExecContext(ctx, `DELETE FROM search_documents;`)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to clear search documents")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// SearchExtensions runs a paged full-text query over the search projection
// and returns the page plus the total number of matches. An empty query text
// matches everything; results with query text rank by relevance first, then
// rating, then name.
func (em *entityManager) SearchExtensions(ctx context.Context, q models.SearchQuery) ([]*models.SearchDocument, int64, apperrors.Error) {
	size := q.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `
		WHERE ($1 = '' OR tsv @@ plainto_tsquery('english', $1))
		  AND ($2 = '' OR categories @> jsonb_build_array($2::text))
	`

	var total int64
	countQuery := `SELECT COUNT(*) FROM search_documents` + where + `;`
	row := em.q(ctx).QueryRowContext(ctx, countQuery, q.Text, q.Category)
	if err := row.Scan(&total); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to count search results")
		return nil, 0, dberror.ErrDatabase.Err(err)
	}

	pageQuery := `
		SELECT extension_id, publisher_name, extension_name, version, icon_file_name,
		       display_name, description, categories, tags, average_rating, updated_at
		FROM search_documents` + where + `
		ORDER BY
			CASE WHEN $1 = '' THEN 0 ELSE ts_rank(tsv, plainto_tsquery('english', $1)) END DESC,
			average_rating DESC,
			extension_name ASC
		LIMIT $3 OFFSET $4;
	`

	rows, err := em.q(ctx).QueryContext(ctx, pageQuery, q.Text, q.Category, size, offset)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to query search documents")
		return nil, 0, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var docs []*models.SearchDocument
	for rows.Next() {
		doc := &models.SearchDocument{}
		categories := pgtype.JSONB{}
		tags := pgtype.JSONB{}
		err := rows.Scan(&doc.ExtensionID, &doc.PublisherName, &doc.ExtensionName, &doc.Version, &doc.IconFileName,
			&doc.DisplayName, &doc.Description, &categories, &tags, &doc.AverageRating, &doc.UpdatedAt)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan search document")
			return nil, 0, dberror.ErrDatabase.Err(err)
		}
		if err := categories.AssignTo(&doc.Categories); err != nil {
			return nil, 0, dberror.ErrDatabase.Err(err)
		}
		if err := tags.AssignTo(&doc.Tags); err != nil {
			return nil, 0, dberror.ErrDatabase.Err(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberror.ErrDatabase.Err(err)
	}

	return docs, total, nil
}
