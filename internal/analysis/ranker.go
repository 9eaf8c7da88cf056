// internal/analysis/ranker.go
package analysis

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aeotrack/aeo-workflows/internal/models"
)

// Keywords at or below this many runes (after normalization) only match on
// word boundaries, so short acronyms don't match inside unrelated words.
const shortKeywordRunes = 2

// RankMentions scans one answer text for every brand in the catalog and
// returns the global earliest-mention ranking. The text is normalized exactly
// once and shared across all brands. Brands with zero matches are absent from
// the result; the remaining brands are ordered by ascending first-mention
// offset (stable, so catalog order breaks ties) and assigned rank 1..K.
func RankMentions(answerText string, brands []models.Brand) models.MentionRanking {
	ranking := make(models.MentionRanking)

	clean := Normalize(answerText)
	if clean == "" || len(brands) == 0 {
		return ranking
	}

	type scored struct {
		name    string
		mention models.BrandMention
	}
	var hits []scored

	for _, brand := range brands {
		first := -1
		count := 0
		var matched []string

		for _, keyword := range brand.Keywords {
			kw := Normalize(keyword)
			if kw == "" {
				continue
			}

			boundary := utf8.RuneCountInString(kw) <= shortKeywordRunes
			positions := findOccurrences(clean, kw, boundary)
			if len(positions) == 0 {
				continue
			}

			matched = append(matched, keyword)
			count += len(positions)
			if first == -1 || positions[0] < first {
				first = positions[0]
			}
		}

		if first == -1 {
			continue
		}

		hits = append(hits, scored{
			name: brand.Name,
			mention: models.BrandMention{
				Position:        first,
				MentionCount:    count,
				MatchedKeywords: matched,
			},
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].mention.Position < hits[j].mention.Position
	})

	for i, hit := range hits {
		hit.mention.Rank = i + 1
		ranking[hit.name] = hit.mention
	}

	return ranking
}

// findOccurrences returns the ascending start offsets of every occurrence of
// keyword in text. With boundary set, only occurrences delimited by spaces or
// the ends of the text count. Both inputs must already be normalized.
func findOccurrences(text, keyword string, boundary bool) []int {
	var positions []int

	for start := 0; start+len(keyword) <= len(text); {
		idx := strings.Index(text[start:], keyword)
		if idx == -1 {
			break
		}
		idx += start

		if !boundary || isWordBoundary(text, idx, len(keyword)) {
			positions = append(positions, idx)
		}
		start = idx + 1
	}

	return positions
}

func isWordBoundary(text string, start, length int) bool {
	if start > 0 && text[start-1] != ' ' {
		return false
	}
	end := start + length
	if end < len(text) && text[end] != ' ' {
		return false
	}
	return true
}
