// Package dberror defines the error taxonomy of the entity store. All store
// operations return errors derived from ErrDatabase so callers can match
// broad classes with errors.Is while the HTTP boundary picks up the status
// code.
package dberror

import (
	"net/http"

	"github.com/extreg/extreg/internal/common/apperrors"
)

var (
	ErrDatabase      apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound      apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrAlreadyExists apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrInvalidInput  apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	// ErrIntegrity signals that a supposedly-unique natural key matched more
	// than one row. This indicates corrupted state, not user error.
	ErrIntegrity apperrors.Error = ErrDatabase.New("data integrity violation").SetStatusCode(http.StatusInternalServerError)
)
