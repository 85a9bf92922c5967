// Description: This file contains the implementation of the extension registry store for the PostgreSQL database.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/dberror"
	"github.com/extreg/extreg/internal/registry/db/dbmanager"
)

type extensionRegistryDb struct {
	em *entityManager
	cm *connectionManager
}

func NewExtensionRegistryDb(c dbmanager.RegistryConn) (*entityManager, *connectionManager) {
	h := &extensionRegistryDb{}
	h.em = newEntityManager(c)
	h.cm = newConnectionManager(c)
	return h.em, h.cm
}

type entityManager struct {
	c dbmanager.RegistryConn
}

func newEntityManager(c dbmanager.RegistryConn) *entityManager {
	return &entityManager{c: c}
}

func (em *entityManager) conn() *sql.Conn {
	return em.c.Conn()
}

// querier is satisfied by both *sql.Conn and *sql.Tx so entity operations run
// the same statements inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKeyType string

const txKey txKeyType = "ExtregRegistryTx"

// q returns the execution target for the given context: the active
// transaction when one was started with WithTransaction, otherwise the
// request's connection.
func (em *entityManager) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return em.c.Conn()
}

// WithTransaction runs fn inside a single transaction on this connection.
// A nested call joins the enclosing transaction instead of opening a new one.
func (em *entityManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) apperrors.Error) (err apperrors.Error) {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok && tx != nil {
		return fn(ctx)
	}

	tx, errdb := em.conn().BeginTx(ctx, &sql.TxOptions{})
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to start transaction")
		return dberror.ErrDatabase.Err(errdb)
	}
	defer func() {
		// Ensure transaction is rolled back if not committed
		if err != nil {
			tx.Rollback()
		}
	}()

	err = fn(context.WithValue(ctx, txKey, tx))
	if err != nil {
		return err
	}

	errdb = tx.Commit()
	if errdb != nil {
		log.Ctx(ctx).Error().Err(errdb).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(errdb)
	}

	return nil
}

type connectionManager struct {
	c dbmanager.RegistryConn
}

func newConnectionManager(c dbmanager.RegistryConn) *connectionManager {
	return &connectionManager{c: c}
}

func (cm *connectionManager) Close(ctx context.Context) {
	cm.c.Close(ctx)
}
