// Package vsix reads extension packages: zip archives carrying a JSON
// manifest and content files under a fixed "extension/" prefix.
package vsix

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/extreg/extreg/internal/common/apperrors"
)

// MaxEntrySize caps how large a single archive entry may be. Checked against
// the declared size before the entry is buffered, and enforced again while
// reading in case the declaration lies.
const MaxEntrySize = 32 * 1024 * 1024

const (
	// ManifestPath is the fixed location of the package manifest.
	ManifestPath = "extension/package.json"
	// ReadmePath is where the readme is looked up first.
	ReadmePath = "extension/README.md"
	// ReadmeFallbackPath is tried when ReadmePath is absent.
	ReadmeFallbackPath = "extension/README"
	// ContentPrefix is where all package content lives, including the icon
	// at ContentPrefix + the manifest's declared relative path.
	ContentPrefix = "extension/"
)

// ReadEntry extracts one named entry from the archive. The path match is
// case-insensitive and backslash separators are normalized before comparing.
// A missing entry is not an error; found reports whether the entry exists.
func ReadEntry(archive []byte, entryPath string) (data []byte, found bool, err apperrors.Error) {
	zr, zerr := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if zerr != nil {
		return nil, false, ErrArchiveCorrupt.Err(zerr)
	}

	want := normalizeEntryPath(entryPath)
	for _, f := range zr.File {
		if normalizeEntryPath(f.Name) != want {
			continue
		}
		if f.UncompressedSize64 > MaxEntrySize {
			return nil, true, ErrEntryTooLarge.Msg("entry " + f.Name + " exceeds the size limit")
		}

		rc, oerr := f.Open()
		if oerr != nil {
			return nil, true, ErrArchiveCorrupt.Err(oerr)
		}
		defer rc.Close()

		data, rerr := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
		if rerr != nil {
			return nil, true, ErrArchiveCorrupt.Err(rerr)
		}
		if len(data) > MaxEntrySize {
			return nil, true, ErrEntryTooLarge.Msg("entry " + f.Name + " exceeds the size limit")
		}
		return data, true, nil
	}

	return nil, false, nil
}

func normalizeEntryPath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
}
