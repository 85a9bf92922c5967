package service

import (
	"net/url"
	"strings"
)

// CreateApiUrl joins path segments under the server's /api prefix, escaping
// each segment. Returns "" if the base or any segment is empty, so callers
// can build optional links without nil-checking every input.
func CreateApiUrl(baseURL string, segments ...string) string {
	if baseURL == "" {
		return ""
	}
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, strings.TrimRight(baseURL, "/")+"/api")
	for _, s := range segments {
		if s == "" {
			return ""
		}
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}
