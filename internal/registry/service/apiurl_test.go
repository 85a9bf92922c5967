package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateApiUrl(t *testing.T) {
	assert.Equal(t, "https://reg.example/api/acme", CreateApiUrl("https://reg.example", "acme"))
	assert.Equal(t, "https://reg.example/api/acme/tool/1.0.0", CreateApiUrl("https://reg.example", "acme", "tool", "1.0.0"))
	assert.Equal(t, "https://reg.example/api/acme/tool/file/acme.tool-1.0.0.vsix",
		CreateApiUrl("https://reg.example/", "acme", "tool", "file", "acme.tool-1.0.0.vsix"))

	assert.Empty(t, CreateApiUrl("", "acme"), "empty base yields no url")
	assert.Empty(t, CreateApiUrl("https://reg.example", "acme", "", "file"), "any empty segment yields no url")
}

func TestCreateApiUrlEscapesSegments(t *testing.T) {
	assert.Equal(t, "https://reg.example/api/acme/my%20tool", CreateApiUrl("https://reg.example", "acme", "my tool"))
}
