package postgresql

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreateReview stores a user review of an extension.
// Returns ErrInvalidInput if the extension does not exist or the rating is
// outside the accepted range.
func (em *entityManager) CreateReview(ctx context.Context, r *models.Review) apperrors.Error {
	if r.ReviewID == uuid.Nil {
		r.ReviewID = uuid.New()
	}

	query := `
		INSERT INTO extension_reviews (review_id, extension_id, user_name, posted_at, title, comment, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	_, err := em.q(ctx).ExecContext(ctx, query, r.ReviewID, r.ExtensionID, r.UserName, r.PostedAt, r.Title, r.Comment, r.Rating)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			if pgErr.Code == "23503" { // foreign key violation
				return dberror.ErrInvalidInput.Msg("extension not found")
			}
			if pgErr.Code == "23514" { // check constraint violation
				return dberror.ErrInvalidInput.Msg("rating must be between 0 and 5")
			}
		}
		log.Ctx(ctx).Error().Err(err).Str("extension_id", r.ExtensionID.String()).Msg("failed to insert review")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// ListReviews returns all reviews of an extension, newest first.
func (em *entityManager) ListReviews(ctx context.Context, extensionID uuid.UUID) ([]*models.Review, apperrors.Error) {
	query := `
		SELECT review_id, extension_id, user_name, posted_at, title, comment, rating
		FROM extension_reviews
		WHERE extension_id = $1
		ORDER BY posted_at DESC;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, extensionID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to list reviews")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		r := &models.Review{}
		if err := rows.Scan(&r.ReviewID, &r.ExtensionID, &r.UserName, &r.PostedAt, &r.Title, &r.Comment, &r.Rating); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan review")
			return nil, dberror.ErrDatabase.Err(err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return reviews, nil
}

// AverageRating computes the current average rating and review count of an
// extension. An extension without reviews averages to 0.
func (em *entityManager) AverageRating(ctx context.Context, extensionID uuid.UUID) (float64, int64, apperrors.Error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM extension_reviews
		WHERE extension_id = $1;
	`

	var avg float64
	var count int64
	row := em.q(ctx).QueryRowContext(ctx, query, extensionID)
	if err := row.Scan(&avg, &count); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("extension_id", extensionID.String()).Msg("failed to compute average rating")
		return 0, 0, dberror.ErrDatabase.Err(err)
	}
	return avg, count, nil
}
