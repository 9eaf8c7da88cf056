// internal/analysis/attributor.go
package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/aeotrack/aeo-workflows/internal/models"
)

// AttributeCitation maps a cited URL to the owning brand. Brands are tested
// in catalog order and the first match wins, so the iteration order over
// brands must stay stable across a run. Returns empty strings when no brand
// owns the URL.
func AttributeCitation(citationURL string, brands []models.Brand) (name, brandType string) {
	for _, brand := range brands {
		if OwnsURL(brand, citationURL) {
			return brand.Name, brand.Type
		}
	}
	return "", ""
}

// BrandCitedIn reports whether any of the citations belongs to the brand.
// Unlike AttributeCitation this check is independent per brand, so two brands
// sharing a domain both get their citation-presence flag set.
func BrandCitedIn(brand models.Brand, citations []string) bool {
	for _, citation := range citations {
		if OwnsURL(brand, citation) {
			return true
		}
	}
	return false
}

// OwnsURL tests one brand against one URL: first the brand's registered URL
// substrings against the lowercased raw URL, then its keyword variants
// against the normalized URL. Short keywords keep the word-boundary rule so
// two-letter acronyms don't claim every URL containing those letters.
func OwnsURL(brand models.Brand, rawURL string) bool {
	if rawURL == "" {
		return false
	}

	urlLower := strings.ToLower(rawURL)
	for _, u := range brand.URLs {
		if u != "" && strings.Contains(urlLower, strings.ToLower(u)) {
			return true
		}
	}

	urlClean := Normalize(rawURL)
	for _, keyword := range brand.Keywords {
		kw := Normalize(keyword)
		if kw == "" {
			continue
		}
		boundary := utf8.RuneCountInString(kw) <= shortKeywordRunes
		if len(findOccurrences(urlClean, kw, boundary)) > 0 {
			return true
		}
	}

	return false
}
