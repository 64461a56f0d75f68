package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "yieldboard/1.0"

// HTTPClient is the client DoGet uses. Replace it in tests or to change
// the timeout.
var HTTPClient = &http.Client{Timeout: 30 * time.Second}

// HTTPError is returned by DoGet for non-2xx responses.
type HTTPError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Status, e.Body)
}

// DoGet performs a GET request with the given headers. On success the caller
// must close the returned body. Non-2xx responses are returned as *HTTPError
// with a truncated body excerpt.
func DoGet(ctx context.Context, rawURL string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", redact(rawURL), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode, &HTTPError{URL: redact(rawURL), Status: resp.StatusCode, Body: string(excerpt)}
	}
	return resp.Body, resp.StatusCode, nil
}

// redact hides the value of an api_key query parameter. Unparseable URLs
// are dropped entirely.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if !q.Has("api_key") {
		return rawURL
	}
	q.Set("api_key", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
