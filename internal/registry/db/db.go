// Package db provides database interfaces and implementations for the
// extension registry. It defines two main interfaces:
//   - EntityManager: Handles publishers, extensions, versions, files, reviews,
//     user sessions and the search projection
//   - ConnectionManager: Manages database connections
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/common/uuid"
	"github.com/extreg/extreg/internal/registry/db/dbmanager"
	"github.com/extreg/extreg/internal/registry/db/models"
	"github.com/extreg/extreg/internal/registry/db/postgresql"
)

// EntityManager handles all persistent entities of the registry.
// All operations require a valid context and may return apperrors.Error for
// various failure cases. Lookups by natural key treat more than one match as
// a data integrity violation, never silently picking a row.
type EntityManager interface {
	// Publisher
	CreatePublisher(ctx context.Context, p *models.Publisher) apperrors.Error
	GetPublisher(ctx context.Context, name string) (*models.Publisher, apperrors.Error)
	GetPublisherByID(ctx context.Context, publisherID uuid.UUID) (*models.Publisher, apperrors.Error)

	// Extension
	CreateExtension(ctx context.Context, e *models.Extension) apperrors.Error
	GetExtension(ctx context.Context, publisherID uuid.UUID, name string) (*models.Extension, apperrors.Error)
	// GetExtensionForUpdate locks the extension row for the rest of the
	// enclosing transaction, serializing concurrent publishes of the same
	// extension.
	GetExtensionForUpdate(ctx context.Context, publisherID uuid.UUID, name string) (*models.Extension, apperrors.Error)
	GetExtensionByID(ctx context.Context, extensionID uuid.UUID) (*models.Extension, apperrors.Error)
	ListExtensionsByPublisher(ctx context.Context, publisherID uuid.UUID) ([]*models.Extension, apperrors.Error)
	ListExtensions(ctx context.Context) ([]*models.Extension, apperrors.Error)
	SetLatestVersion(ctx context.Context, extensionID uuid.UUID, versionID uuid.UUID) apperrors.Error
	SetAverageRating(ctx context.Context, extensionID uuid.UUID, rating float64) apperrors.Error

	// ExtensionVersion
	CreateVersion(ctx context.Context, v *models.ExtensionVersion) apperrors.Error
	GetVersion(ctx context.Context, extensionID uuid.UUID, version string) (*models.ExtensionVersion, apperrors.Error)
	GetVersionByID(ctx context.Context, versionID uuid.UUID) (*models.ExtensionVersion, apperrors.Error)
	ListVersions(ctx context.Context, extensionID uuid.UUID) ([]*models.ExtensionVersion, apperrors.Error)
	VersionExists(ctx context.Context, extensionID uuid.UUID, version string) (bool, apperrors.Error)
	CreateReference(ctx context.Context, versionID uuid.UUID, targetExtensionID uuid.UUID, kind models.ReferenceKind) apperrors.Error
	ListReferences(ctx context.Context, versionID uuid.UUID, kind models.ReferenceKind) ([]models.RefTarget, apperrors.Error)

	// FileResource
	CreateFileResource(ctx context.Context, f *models.FileResource) apperrors.Error
	GetFileResource(ctx context.Context, versionID uuid.UUID, kind models.FileKind) (*models.FileResource, apperrors.Error)

	// Review
	CreateReview(ctx context.Context, r *models.Review) apperrors.Error
	ListReviews(ctx context.Context, extensionID uuid.UUID) ([]*models.Review, apperrors.Error)
	AverageRating(ctx context.Context, extensionID uuid.UUID) (float64, int64, apperrors.Error)

	// UserSession
	CreateUserSession(ctx context.Context, s *models.UserSession) apperrors.Error
	GetUserSession(ctx context.Context, sessionID uuid.UUID) (*models.UserSession, apperrors.Error)
	TouchUserSession(ctx context.Context, sessionID uuid.UUID, usedAt time.Time) apperrors.Error
	DeleteUserSession(ctx context.Context, sessionID uuid.UUID) apperrors.Error
	DeleteExpiredUserSessions(ctx context.Context, cutoff time.Time) (int64, apperrors.Error)

	// Search projection
	UpsertSearchDocument(ctx context.Context, doc *models.SearchDocument) apperrors.Error
	TruncateSearchDocuments(ctx context.Context) apperrors.Error
	SearchExtensions(ctx context.Context, q models.SearchQuery) ([]*models.SearchDocument, int64, apperrors.Error)

	// WithTransaction runs fn inside a single database transaction on this
	// connection. Entity operations called with the context passed to fn join
	// that transaction. fn returning a non-nil error rolls everything back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) apperrors.Error
}

// ConnectionManager handles database connection lifecycle.
type ConnectionManager interface {
	// Close the connection to the database.
	Close(ctx context.Context)
}

// Database interface combines both managers into a single interface.
// This allows for a unified database access layer while keeping connection
// handling separable from entity operations.
type Database interface {
	EntityManager
	ConnectionManager
}

var pool dbmanager.RegistryDb

// Init initializes the database connection pool.
// It attempts to create a new database connection and logs any errors.
func Init() {
	ctx := log.Logger.WithContext(context.Background())
	pg := dbmanager.NewRegistryDb(ctx, "postgresql")
	if pg == nil {
		panic("unable to create db pool")
	}
	pool = pg
}

// Conn returns a new database connection from the pool.
// Returns an error if the connection cannot be established.
func Conn(ctx context.Context) (dbmanager.RegistryConn, error) {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return nil, fmt.Errorf("database pool not initialized")
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "ExtregRegistryDb"

// ConnCtx adds a database connection to the context.
// Returns an error if the connection cannot be established.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type extensionRegistryDb struct {
	EntityManager
	ConnectionManager
}

// DB returns a new database instance from the context.
// It expects a valid database connection in the context.
// Returns nil if no connection is found in the context.
func DB(ctx context.Context) Database {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.RegistryConn); ok {
		em, cm := postgresql.NewExtensionRegistryDb(conn)
		return &extensionRegistryDb{
			EntityManager:     em,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}
