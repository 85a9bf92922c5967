package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/extreg/extreg/internal/common/apperrors"
	"github.com/extreg/extreg/internal/registry/db/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxUpstreamResponse caps how much of an upstream response is buffered.
const maxUpstreamResponse = 64 * 1024 * 1024

// errUpstreamMiss marks a clean upstream 404 inside the retry loop.
var errUpstreamMiss = errors.New("upstream miss")

// UpstreamRegistry reads from another registry over HTTP. Misses, timeouts
// and transport failures all surface as fall-through errors so a slow or
// absent upstream never breaks a local read.
type UpstreamRegistry struct {
	baseURL string
	client  *http.Client
}

var _ ExtensionRegistry = (*UpstreamRegistry)(nil)

// NewUpstreamRegistry returns a client for the registry at baseURL with the
// given dial and full-request timeouts.
func NewUpstreamRegistry(baseURL string, connectTimeout, readTimeout time.Duration) *UpstreamRegistry {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &UpstreamRegistry{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (ur *UpstreamRegistry) GetPublisher(ctx context.Context, publisherName string) (*PublisherJson, apperrors.Error) {
	out := &PublisherJson{}
	if err := ur.getJSON(ctx, CreateApiUrl(ur.baseURL, publisherName), out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, ErrUpstreamNotFound.Msg(out.Error)
	}
	return out, nil
}

func (ur *UpstreamRegistry) GetExtension(ctx context.Context, publisherName, extensionName string) (*ExtensionJson, apperrors.Error) {
	out := &ExtensionJson{}
	if err := ur.getJSON(ctx, CreateApiUrl(ur.baseURL, publisherName, extensionName), out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, ErrUpstreamNotFound.Msg(out.Error)
	}
	return out, nil
}

func (ur *UpstreamRegistry) GetExtensionVersion(ctx context.Context, publisherName, extensionName, version string) (*ExtensionJson, apperrors.Error) {
	out := &ExtensionJson{}
	if err := ur.getJSON(ctx, CreateApiUrl(ur.baseURL, publisherName, extensionName, version), out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, ErrUpstreamNotFound.Msg(out.Error)
	}
	return out, nil
}

func (ur *UpstreamRegistry) GetFile(ctx context.Context, publisherName, extensionName, version, fileName string) ([]byte, string, apperrors.Error) {
	segments := []string{publisherName, extensionName, "file", fileName}
	if version != "" {
		segments = []string{publisherName, extensionName, version, "file", fileName}
	}
	u := CreateApiUrl(ur.baseURL, segments...)
	if u == "" {
		return nil, "", ErrUpstreamNotFound
	}

	var body []byte
	var contentType string
	err := ur.get(ctx, u, func(rsp *http.Response) error {
		var rerr error
		body, rerr = io.ReadAll(io.LimitReader(rsp.Body, maxUpstreamResponse))
		contentType = rsp.Header.Get("Content-Type")
		return rerr
	})
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return body, contentType, nil
}

func (ur *UpstreamRegistry) GetReviews(ctx context.Context, publisherName, extensionName string) (*ReviewListJson, apperrors.Error) {
	out := &ReviewListJson{}
	if err := ur.getJSON(ctx, CreateApiUrl(ur.baseURL, publisherName, extensionName, "reviews"), out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, ErrUpstreamNotFound.Msg(out.Error)
	}
	return out, nil
}

func (ur *UpstreamRegistry) Search(ctx context.Context, q models.SearchQuery) (*SearchResultJson, apperrors.Error) {
	u := CreateApiUrl(ur.baseURL, "-", "search")
	params := url.Values{}
	if q.Text != "" {
		params.Set("query", q.Text)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}

	out := &SearchResultJson{}
	if err := ur.getJSON(ctx, u, out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, ErrUpstreamNotFound.Msg(out.Error)
	}
	return out, nil
}

func (ur *UpstreamRegistry) getJSON(ctx context.Context, u string, out any) apperrors.Error {
	if u == "" {
		return ErrUpstreamNotFound
	}
	return ur.get(ctx, u, func(rsp *http.Response) error {
		body, err := io.ReadAll(io.LimitReader(rsp.Body, maxUpstreamResponse))
		if err != nil {
			return err
		}
		return json.Unmarshal(body, out)
	})
}

// get fetches u, retrying transient transport failures. A 404 or an
// exhausted retry budget maps to the fall-through errors; callers never see
// raw transport errors.
func (ur *UpstreamRegistry) get(ctx context.Context, u string, handle func(*http.Response) error) apperrors.Error {
	err := retry.Do(
		func() error {
			req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if rerr != nil {
				return retry.Unrecoverable(rerr)
			}
			rsp, rerr := ur.client.Do(req)
			if rerr != nil {
				return rerr
			}
			defer rsp.Body.Close()

			switch {
			case rsp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(errUpstreamMiss)
			case rsp.StatusCode >= 500:
				return fmt.Errorf("upstream returned status %d", rsp.StatusCode)
			case rsp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("upstream returned status %d", rsp.StatusCode))
			}
			return handle(rsp)
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, errUpstreamMiss) {
		return ErrUpstreamNotFound
	}
	return ErrUpstreamUnavailable.Err(err)
}
