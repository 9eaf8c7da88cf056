package common

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var schemeRe = regexp.MustCompile(`https?://`)

// redirect hosts used by search-engine grounding
func isGroundingRedirect(rawURL string) bool {
	return strings.Contains(rawURL, "vertexaisearch.cloud.google.com") ||
		strings.Contains(rawURL, "google.com/grounding-api-redirect")
}

// ResolveRedirect unwraps a grounding-redirect URL to its final destination.
// It prefers decoding the target locally - an embedded second URL or a `url`
// query parameter - and only follows the redirect over HTTP when the target
// is not recoverable from the URL itself. On any failure the input is
// returned unchanged.
func ResolveRedirect(ctx context.Context, client *http.Client, rawURL string) string {
	if rawURL == "" {
		return ""
	}
	rawURL = strings.TrimSpace(rawURL)

	// Some redirect wrappers embed the destination URL directly after the
	// wrapper, so the second scheme marker starts the real target.
	if matches := schemeRe.FindAllStringIndex(rawURL, -1); len(matches) > 1 {
		embedded := rawURL[matches[1][0]:]
		if !isGroundingRedirect(embedded) {
			return embedded
		}
		rawURL = embedded
	}

	// Or carry it in a query parameter, which saves a network round trip.
	if parsed, err := url.Parse(rawURL); err == nil {
		if target := parsed.Query().Get("url"); strings.HasPrefix(target, "http") {
			return target
		}
	}

	if !isGroundingRedirect(rawURL) {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return rawURL
}

// NewRedirectClient returns the short-timeout client used for resolving
// grounding redirects. Kept separate from the provider client so a slow
// redirect host cannot eat into the answer-call budget.
func NewRedirectClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
