package vsix

import (
	"path"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/extreg/extreg/internal/common/apperrors"
)

// Descriptor is the structured view of a package manifest. Name, Publisher
// and Version are always set; everything else is best-effort and "" or nil
// when the manifest does not supply it in a usable form.
type Descriptor struct {
	Name      string
	Publisher string
	Version   string

	Preview      bool
	DisplayName  string
	Description  string
	Categories   []string
	Tags         []string
	License      string
	Homepage     string
	Repository   string
	Bugs         string
	Markdown     string
	GalleryColor string
	GalleryTheme string
	QnA          string
	Icon         string

	ExtensionDependencies []string
	BundledExtensions     []string
}

// ParseManifest parses manifest bytes into a Descriptor. Only the three
// identity fields are required; optional fields of the wrong JSON type are
// treated as absent, and non-string elements inside array fields are dropped
// without failing the parse. Unknown fields are ignored.
func ParseManifest(data []byte) (*Descriptor, apperrors.Error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrManifestMalformed
	}
	m := gjson.ParseBytes(data)
	if !m.IsObject() {
		return nil, ErrManifestMalformed.Msg("package manifest is not a JSON object")
	}

	d := &Descriptor{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &d.Name},
		{"publisher", &d.Publisher},
		{"version", &d.Version},
	} {
		v := m.Get(f.key)
		if v.Type != gjson.String || v.Str == "" {
			return nil, ErrManifestInvalid.Msg("package manifest is missing required field: " + f.key)
		}
		*f.dst = v.Str
	}

	d.Preview = m.Get("preview").Type == gjson.True
	d.DisplayName = stringValue(m.Get("displayName"))
	d.Description = stringValue(m.Get("description"))
	d.Categories = stringList(m.Get("categories"))
	d.Tags = stringList(m.Get("keywords"))
	d.License = stringValue(m.Get("license"))
	d.Homepage = urlValue(m.Get("homepage"))
	d.Repository = urlValue(m.Get("repository"))
	d.Bugs = urlValue(m.Get("bugs"))
	d.Markdown = stringValue(m.Get("markdown"))
	d.GalleryColor = stringValue(m.Get("galleryBanner.color"))
	d.GalleryTheme = stringValue(m.Get("galleryBanner.theme"))
	d.QnA = stringValue(m.Get("qna"))
	d.Icon = stringValue(m.Get("icon"))
	d.ExtensionDependencies = stringList(m.Get("extensionDependencies"))
	d.BundledExtensions = stringList(m.Get("extensionPack"))

	return d, nil
}

// ReadManifest extracts the manifest entry from archive bytes and parses it.
func ReadManifest(archive []byte) (*Descriptor, apperrors.Error) {
	data, found, err := ReadEntry(archive, ManifestPath)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrManifestMissing
	}
	return ParseManifest(data)
}

// ReadReadme returns the package readme and its base file name, trying
// extension/README.md first and extension/README as fallback. A package
// without a readme returns found=false.
func ReadReadme(archive []byte) (data []byte, name string, found bool, err apperrors.Error) {
	for _, p := range []string{ReadmePath, ReadmeFallbackPath} {
		data, found, err = ReadEntry(archive, p)
		if err != nil {
			return nil, "", false, err
		}
		if found {
			return data, path.Base(p), true, nil
		}
	}
	return nil, "", false, nil
}

// ReadIcon returns the package icon named by the manifest's relative icon
// path, plus its base file name. An empty icon path or a missing entry
// returns found=false.
func ReadIcon(archive []byte, iconPath string) (data []byte, name string, found bool, err apperrors.Error) {
	if iconPath == "" {
		return nil, "", false, nil
	}
	entry := ContentPrefix + strings.ReplaceAll(iconPath, `\`, "/")
	data, found, err = ReadEntry(archive, entry)
	if err != nil || !found {
		return nil, "", found, err
	}
	return data, path.Base(entry), true, nil
}

// FileName computes the canonical package file name for a published version.
func FileName(publisher, name, version string) string {
	return publisher + "." + name + "-" + version + ".vsix"
}

func stringValue(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// urlValue accepts either a bare string or an object carrying a url field,
// the two shapes manifests use for homepage, repository and bugs.
func urlValue(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	if v.IsObject() {
		return stringValue(v.Get("url"))
	}
	return ""
}

func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, e := range v.Array() {
		if e.Type == gjson.String {
			out = append(out, e.Str)
		}
	}
	return out
}
