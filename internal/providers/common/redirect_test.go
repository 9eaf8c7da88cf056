package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResolveRedirectPassthrough(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain url untouched", "https://www.example.com/page", "https://www.example.com/page"},
		{"whitespace trimmed", "  https://www.example.com ", "https://www.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRedirect(context.Background(), NewRedirectClient(), tt.input)
			if got != tt.expected {
				t.Errorf("ResolveRedirect(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolveRedirectEmbeddedURL(t *testing.T) {
	input := "https://vertexaisearch.cloud.google.com/r?x=https://www.kb.cz/page"
	got := ResolveRedirect(context.Background(), NewRedirectClient(), input)
	if got != "https://www.kb.cz/page" {
		t.Errorf("embedded URL = %q, want embedded destination", got)
	}
}

func TestResolveRedirectQueryParameter(t *testing.T) {
	input := "https://vertexaisearch.cloud.google.com/grounding?url=https%3A%2F%2Fwww.csob.cz%2Fpujcky"
	got := ResolveRedirect(context.Background(), NewRedirectClient(), input)
	if got != "https://www.csob.cz/pujcky" {
		t.Errorf("query-parameter target = %q, want decoded destination", got)
	}
}

func TestResolveRedirectFollowsHTTP(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "grounding-api-redirect") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, final.URL+"/landing", http.StatusFound)
	}))
	defer redirect.Close()

	// Grounding detection is a substring test over the whole URL, so a test
	// URL carrying the redirect marker in its path exercises the HTTP path
	// without touching the real host.
	input := redirect.URL + "/google.com/grounding-api-redirect/abc"
	got := ResolveRedirect(context.Background(), redirect.Client(), input)
	if got != final.URL+"/landing" {
		t.Errorf("followed URL = %q, want %q", got, final.URL+"/landing")
	}
}

func TestResolveRedirectUnreachableHostKeepsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	input := srv.URL + "/google.com/grounding-api-redirect/abc"
	srv.Close()

	got := ResolveRedirect(context.Background(), NewRedirectClient(), input)
	if got != input {
		t.Errorf("unreachable redirect = %q, want input unchanged", got)
	}
}
