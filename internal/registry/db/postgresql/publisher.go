package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/models"
)

// CreatePublisher creates a new publisher in the database.
// It generates a new UUID for the publisher ID if one is not set.
// Returns ErrAlreadyExists if a publisher with the same name exists.
func (em *entityManager) CreatePublisher(ctx context.Context, p *models.Publisher) apperrors.Error {
	publisherID := p.PublisherID
	if publisherID == uuid.Nil {
		publisherID = uuid.New()
	}

	query := `
		INSERT INTO publishers (publisher_id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING publisher_id, created_at;
	`

	row := em.q(ctx).QueryRowContext(ctx, query, publisherID, p.Name)
	err := row.Scan(&p.PublisherID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("name", p.Name).Msg("publisher already exists")
			return dberror.ErrAlreadyExists.Msg("publisher already exists")
		}
		log.Ctx(ctx).Error().Err(err).Str("name", p.Name).Msg("failed to insert publisher")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetPublisher retrieves a publisher by its unique name.
// Returns ErrNotFound if no publisher matches, ErrIntegrity if more than one does.
func (em *entityManager) GetPublisher(ctx context.Context, name string) (*models.Publisher, apperrors.Error) {
	query := `
		SELECT publisher_id, name, created_at
		FROM publishers
		WHERE name = $1;
	`

	rows, err := em.q(ctx).QueryContext(ctx, query, name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("name", name).Msg("failed to query publisher")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var found []*models.Publisher
	for rows.Next() {
		p := &models.Publisher{}
		if err := rows.Scan(&p.PublisherID, &p.Name, &p.CreatedAt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan publisher")
			return nil, dberror.ErrDatabase.Err(err)
		}
		found = append(found, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	switch len(found) {
	case 0:
		return nil, dberror.ErrNotFound.Msg("publisher not found")
	case 1:
		return found[0], nil
	default:
		log.Ctx(ctx).Error().Str("name", name).Int("count", len(found)).Msg("multiple publishers share a unique name")
		return nil, dberror.ErrIntegrity.Msg("multiple publishers share a unique name")
	}
}

// GetPublisherByID retrieves a publisher by its primary key.
func (em *entityManager) GetPublisherByID(ctx context.Context, publisherID uuid.UUID) (*models.Publisher, apperrors.Error) {
	query := `
		SELECT publisher_id, name, created_at
		FROM publishers
		WHERE publisher_id = $1;
	`

	p := &models.Publisher{}
	row := em.q(ctx).QueryRowContext(ctx, query, publisherID)
	err := row.Scan(&p.PublisherID, &p.Name, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("publisher not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("publisher_id", publisherID.String()).Msg("failed to query publisher")
		return nil, dberror.ErrDatabase.Err(err)
	}

	return p, nil
}
