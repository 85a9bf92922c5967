package vsix

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadEntry(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"extension/package.json": []byte(`{"name":"tool"}`),
		"extension/README.md":    []byte("# readme"),
	})

	data, found, err := ReadEntry(archive, "extension/package.json")
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"name":"tool"}`), data)

	data, found, err = ReadEntry(archive, "extension/missing.txt")
	require.Nil(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestReadEntryCaseInsensitive(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"Extension/Package.JSON": []byte(`{}`),
	})

	_, found, err := ReadEntry(archive, "extension/package.json")
	require.Nil(t, err)
	assert.True(t, found)
}

func TestReadEntryBackslashSeparators(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		`extension\images\icon.png`: []byte("png-bytes"),
	})

	data, found, err := ReadEntry(archive, "extension/images/icon.png")
	require.Nil(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestReadEntryCorruptArchive(t *testing.T) {
	_, _, err := ReadEntry([]byte("this is not a zip"), "extension/package.json")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrArchiveCorrupt)
}

func TestReadEntryTooLarge(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"extension/huge.bin": bytes.Repeat([]byte{0}, MaxEntrySize+1),
	})

	_, _, err := ReadEntry(archive, "extension/huge.bin")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrEntryTooLarge)
}
