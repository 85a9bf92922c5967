// Package versions orders semantic version strings and decides which
// published version of an extension is the latest.
package versions

import (
	"net/http"

	"github.com/Masterminds/semver/v3"

	"github.com/extreg/extreg/internal/common/apperrors"
)

// ErrInvalidVersion rejects version strings that do not parse as strict
// semantic versions. Malformed versions must never sort arbitrarily.
var ErrInvalidVersion apperrors.Error = apperrors.New("invalid semantic version").SetStatusCode(http.StatusBadRequest)

// Parse validates a version string under strict semver rules.
func Parse(version string) (*semver.Version, apperrors.Error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return nil, ErrInvalidVersion.Msg("invalid semantic version: " + version)
	}
	return v, nil
}

// Compare orders two version strings: -1 if a < b, 0 if equal, +1 if a > b.
// Pre-release versions order below their release per semver precedence.
func Compare(a, b string) (int, apperrors.Error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// IsLatest reports whether candidate is at least as new as every version in
// published, i.e. no already-published version is strictly greater. An empty
// published set makes any valid candidate the latest.
func IsLatest(candidate string, published []string) (bool, apperrors.Error) {
	vc, err := Parse(candidate)
	if err != nil {
		return false, err
	}
	for _, p := range published {
		vp, err := Parse(p)
		if err != nil {
			return false, err
		}
		if vp.GreaterThan(vc) {
			return false, nil
		}
	}
	return true, nil
}
