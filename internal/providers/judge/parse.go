package judge

import (
	"encoding/json"
	"strings"

	"github.com/aeotrack/aeo-workflows/internal/models"
)

type verdictEntry struct {
	Brand          string `json:"brand"`
	Sentiment      string `json:"sentiment"`
	Recommendation string `json:"recommendation"`
}

// ParseVerdicts extracts per-brand verdicts from raw model output. The model
// sometimes wraps the array in markdown fences or leading prose, so parsing
// strips fences and takes the outermost array delimiters before decoding.
// Entries for brands outside the given list are dropped; brand matching is
// case-insensitive and results are keyed by the canonical catalog name.
// Anything unparseable yields an empty map.
func ParseVerdicts(raw string, brandNames []string) map[string]models.BrandVerdict {
	verdicts := make(map[string]models.BrandVerdict)

	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")

	first := strings.Index(raw, "[")
	last := strings.LastIndex(raw, "]")
	if first == -1 || last <= first {
		return verdicts
	}

	var entries []verdictEntry
	if err := json.Unmarshal([]byte(raw[first:last+1]), &entries); err != nil {
		return verdicts
	}

	canonical := make(map[string]string, len(brandNames))
	for _, name := range brandNames {
		canonical[strings.ToLower(strings.TrimSpace(name))] = name
	}

	for _, entry := range entries {
		name, ok := canonical[strings.ToLower(strings.TrimSpace(entry.Brand))]
		if !ok {
			continue
		}
		verdicts[name] = models.BrandVerdict{
			Sentiment:      normalizeSentiment(entry.Sentiment),
			Recommendation: normalizeRecommendation(entry.Recommendation),
		}
	}

	return verdicts
}

func normalizeSentiment(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case models.SentimentPositive:
		return models.SentimentPositive
	case models.SentimentNegative:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func normalizeRecommendation(raw string) string {
	if strings.Contains(strings.ToUpper(raw), models.RecommendationYes) {
		return models.RecommendationYes
	}
	return models.RecommendationNo
}
