package vsix

import (
	"net/http"

	"github.com/extreg/extreg/internal/common/apperrors"
)

var (
	// ErrPackage is the base error for everything wrong with an uploaded
	// extension package. All package errors are caller-fixable.
	ErrPackage apperrors.Error = apperrors.New("invalid extension package").SetStatusCode(http.StatusBadRequest)

	ErrArchiveCorrupt    apperrors.Error = ErrPackage.New("package is not a valid zip archive")
	ErrEntryTooLarge     apperrors.Error = ErrPackage.New("archive entry exceeds the size limit")
	ErrManifestMissing   apperrors.Error = ErrPackage.New("package manifest not found at " + ManifestPath)
	ErrManifestMalformed apperrors.Error = ErrPackage.New("package manifest is not valid JSON")
	ErrManifestInvalid   apperrors.Error = ErrPackage.New("package manifest is missing required fields")
)
