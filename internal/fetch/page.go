package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// MaxPageBytes bounds how much HTML GetPage reads.
const MaxPageBytes = 512 << 10

// Page is the head of an HTML document.
type Page struct {
	URL         *url.URL // after redirects
	ContentType string
	Body        []byte
}

// GetPage fetches at most limit bytes of rawURL. Non-200 responses are
// rejected with a *StatusError.
func GetPage(ctx context.Context, client *http.Client, rawURL string, limit int64, userAgent string) (*Page, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = MaxPageBytes
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}

	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return &Page{URL: resp.Request.URL, ContentType: ct, Body: body}, nil
}
