package vsix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	manifest := []byte(`{
		"name": "tool",
		"publisher": "acme",
		"version": "1.0.0",
		"displayName": "Acme Tool",
		"description": "A tool.",
		"preview": true,
		"categories": ["Linters", "Other"],
		"keywords": ["lint", "style"],
		"license": "MIT",
		"homepage": "https://acme.example/tool",
		"repository": {"type": "git", "url": "https://git.example/acme/tool"},
		"bugs": {"url": "https://git.example/acme/tool/issues"},
		"galleryBanner": {"color": "#1e1e1e", "theme": "dark"},
		"markdown": "github",
		"qna": "https://qna.example",
		"icon": "images/icon.png",
		"extensionDependencies": ["acme.base"],
		"extensionPack": ["acme.pack-a", "acme.pack-b"]
	}`)

	d, err := ParseManifest(manifest)
	require.Nil(t, err)
	assert.Equal(t, "tool", d.Name)
	assert.Equal(t, "acme", d.Publisher)
	assert.Equal(t, "1.0.0", d.Version)
	assert.Equal(t, "Acme Tool", d.DisplayName)
	assert.True(t, d.Preview)
	assert.Equal(t, []string{"Linters", "Other"}, d.Categories)
	assert.Equal(t, []string{"lint", "style"}, d.Tags)
	assert.Equal(t, "https://acme.example/tool", d.Homepage)
	assert.Equal(t, "https://git.example/acme/tool", d.Repository)
	assert.Equal(t, "https://git.example/acme/tool/issues", d.Bugs)
	assert.Equal(t, "#1e1e1e", d.GalleryColor)
	assert.Equal(t, "dark", d.GalleryTheme)
	assert.Equal(t, "images/icon.png", d.Icon)
	assert.Equal(t, []string{"acme.base"}, d.ExtensionDependencies)
	assert.Equal(t, []string{"acme.pack-a", "acme.pack-b"}, d.BundledExtensions)
}

func TestParseManifestRequiredFields(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"missing name", `{"publisher": "acme", "version": "1.0.0"}`},
		{"missing publisher", `{"name": "tool", "version": "1.0.0"}`},
		{"missing version", `{"name": "tool", "publisher": "acme"}`},
		{"empty name", `{"name": "", "publisher": "acme", "version": "1.0.0"}`},
		{"non-string version", `{"name": "tool", "publisher": "acme", "version": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.manifest))
			require.NotNil(t, err)
			assert.ErrorIs(t, err, ErrManifestInvalid)
		})
	}
}

func TestParseManifestMalformed(t *testing.T) {
	_, err := ParseManifest([]byte(`{"name": "tool",`))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrManifestMalformed)

	_, err = ParseManifest([]byte(`[1, 2, 3]`))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrManifestMalformed)
}

func TestParseManifestTolerance(t *testing.T) {
	manifest := []byte(`{
		"name": "tool",
		"publisher": "acme",
		"version": "1.0.0",
		"displayName": 42,
		"categories": ["Linters", 7, null, "Other"],
		"keywords": "not-an-array",
		"homepage": {"nested": true},
		"repository": 9,
		"unknownField": {"anything": "goes"}
	}`)

	d, err := ParseManifest(manifest)
	require.Nil(t, err)
	assert.Empty(t, d.DisplayName)
	assert.Equal(t, []string{"Linters", "Other"}, d.Categories)
	assert.Nil(t, d.Tags)
	assert.Empty(t, d.Homepage)
	assert.Empty(t, d.Repository)
}

func TestReadManifest(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"extension/package.json": []byte(`{"name": "tool", "publisher": "acme", "version": "1.0.0"}`),
	})

	d, err := ReadManifest(archive)
	require.Nil(t, err)
	assert.Equal(t, "acme", d.Publisher)

	empty := buildArchive(t, map[string][]byte{"other.txt": []byte("x")})
	_, err = ReadManifest(empty)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrManifestMissing)
}

func TestReadReadme(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"extension/README.md": []byte("# doc"),
	})
	data, name, found, err := ReadReadme(archive)
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "README.md", name)
	assert.Equal(t, []byte("# doc"), data)

	fallback := buildArchive(t, map[string][]byte{
		"extension/README": []byte("plain doc"),
	})
	data, name, found, err = ReadReadme(fallback)
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "README", name)
	assert.Equal(t, []byte("plain doc"), data)

	none := buildArchive(t, map[string][]byte{"extension/package.json": []byte("{}")})
	_, _, found, err = ReadReadme(none)
	require.Nil(t, err)
	assert.False(t, found)
}

func TestReadIcon(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"extension/images/icon.png": []byte("png-bytes"),
	})

	data, name, found, err := ReadIcon(archive, "images/icon.png")
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, "icon.png", name)
	assert.Equal(t, []byte("png-bytes"), data)

	_, _, found, err = ReadIcon(archive, "")
	require.Nil(t, err)
	assert.False(t, found)

	_, _, found, err = ReadIcon(archive, "missing.png")
	require.Nil(t, err)
	assert.False(t, found)
}
