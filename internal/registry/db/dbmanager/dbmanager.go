package dbmanager

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

type RegistryDb interface {
	// Conn returns a new connection to the database.
	// Returns a RegistryConn and an error, if any.
	Conn(ctx context.Context) (RegistryConn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
}

type RegistryConn interface {
	// Conn returns the underlying *sql.Conn. Do not close this directly.
	// Use RegistryConn.Close(ctx) so the pool accounting stays correct.
	Conn() *sql.Conn
	// Close returns the connection back to the pool.
	Close(ctx context.Context)
}

// NewRegistryDb returns a handle to the registry database. Connections
// obtained from it are not concurrency safe and must be used in a single
// goroutine; the server uses one connection per request and the background
// workers check out their own.
func NewRegistryDb(ctx context.Context, dbtype string) RegistryDb {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlDb()
		if err != nil || db == nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to create PostgreSQL DB")
			return nil
		}
		return db
	}
	return nil
}
