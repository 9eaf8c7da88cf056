// internal/models/models.go
package models

import "time"

// Query is one natural-language question loaded from the catalog.
// Immutable once loaded; (Text, provider) identifies a retryable attempt.
type Query struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"query"`
	Category   string `json:"category"`
	Product    string `json:"product"`
	SubProduct string `json:"sub_product,omitempty"`
	Type       string `json:"type"`
	Persona    string `json:"persona"`
	Active     bool   `json:"active"`
}

// Brand is a tracked entity with its keyword variants and owned URL substrings.
type Brand struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Keywords []string `json:"keywords"`
	URLs     []string `json:"urls"`
}

// BrandMention holds the per-brand stats computed from a single answer text.
type BrandMention struct {
	Rank            int      `json:"rank"`     // 1 = earliest mention
	Position        int      `json:"position"` // offset into the normalized text
	MentionCount    int      `json:"mention_count"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// MentionRanking maps brand name to its mention stats. Brands with zero
// matches are absent from the map.
type MentionRanking map[string]BrandMention

// Sentiment values the judge may assign.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
)

// Recommendation values the judge may assign.
const (
	RecommendationYes = "YES"
	RecommendationNo  = "NO"
)

// BrandVerdict is the judge's sentiment/recommendation call for one brand.
type BrandVerdict struct {
	Sentiment      string `json:"sentiment"`
	Recommendation string `json:"recommendation"`
}

// FailedAttempt records one query+provider call that exhausted its retries.
// Identity key for ledger dedup is (Query.Text, Provider).
type FailedAttempt struct {
	Query      Query     `json:"query"`
	Provider   string    `json:"provider"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// RunContext carries the shared identifiers stamped onto every row of a run.
type RunContext struct {
	RunID     string
	Timestamp string // "2006-01-02 15:04:05"
	Date      string // "2006-01-02"
}

// NewRunContext builds a RunContext from a run ID and start time.
func NewRunContext(runID string, start time.Time) RunContext {
	return RunContext{
		RunID:     runID,
		Timestamp: start.Format("2006-01-02 15:04:05"),
		Date:      start.Format("2006-01-02"),
	}
}

// RunSummary aggregates the outcome of one orchestrated run. Successful and
// Failed are counted at query+provider granularity, matching the unit of retry.
type RunSummary struct {
	Successful     int
	Failed         int
	FailedAttempts []FailedAttempt
}

// FailureRate returns the failed fraction of all attempted query+provider pairs.
func (s *RunSummary) FailureRate() float64 {
	total := s.Successful + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(total)
}
