package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamGetExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/acme/tool", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"publisher": "acme", "name": "tool", "version": "1.0.0"}`))
	}))
	defer srv.Close()

	ur := NewUpstreamRegistry(srv.URL, time.Second, 5*time.Second)
	out, err := ur.GetExtension(context.Background(), "acme", "tool")
	require.Nil(t, err)
	assert.Equal(t, "acme", out.Publisher)
	assert.Equal(t, "1.0.0", out.Version)
}

func TestUpstreamNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ur := NewUpstreamRegistry(srv.URL, time.Second, 5*time.Second)
	_, err := ur.GetExtension(context.Background(), "acme", "missing")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrUpstreamNotFound)
	assert.True(t, IsNotFound(err))
}

func TestUpstreamInBandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "extension not found"}`))
	}))
	defer srv.Close()

	ur := NewUpstreamRegistry(srv.URL, time.Second, 5*time.Second)
	_, err := ur.GetExtension(context.Background(), "acme", "missing")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrUpstreamNotFound)
}

func TestUpstreamRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"publisher": "acme", "name": "tool", "version": "1.0.0"}`))
	}))
	defer srv.Close()

	ur := NewUpstreamRegistry(srv.URL, time.Second, 5*time.Second)
	out, err := ur.GetExtension(context.Background(), "acme", "tool")
	require.Nil(t, err)
	assert.Equal(t, "1.0.0", out.Version)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUpstreamUnreachable(t *testing.T) {
	ur := NewUpstreamRegistry("http://127.0.0.1:1", 200*time.Millisecond, time.Second)
	_, err := ur.GetExtension(context.Background(), "acme", "tool")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.True(t, IsNotFound(err), "unreachable upstream must be fall-through equivalent")
}

func TestUpstreamGetFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/acme/tool/1.0.0/file/acme.tool-1.0.0.vsix", r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	ur := NewUpstreamRegistry(srv.URL, time.Second, 5*time.Second)
	data, contentType, err := ur.GetFile(context.Background(), "acme", "tool", "1.0.0", "acme.tool-1.0.0.vsix")
	require.Nil(t, err)
	assert.Equal(t, []byte("zip-bytes"), data)
	assert.Equal(t, "application/octet-stream", contentType)
}
