package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

// mockGateway returns a fixed answer per query, or nil when absent. Safe for
// concurrent use so runner tests can share it across workers.
type mockGateway struct {
	mu      sync.Mutex
	name    string
	answers map[string]*common.ProviderAnswer
	asked   []string
}

func (m *mockGateway) Ask(_ context.Context, query string) *common.ProviderAnswer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asked = append(m.asked, query)
	return m.answers[query]
}

func (m *mockGateway) Name() string { return m.name }

// mockJudge records its inputs and returns canned verdicts.
type mockJudge struct {
	mu       sync.Mutex
	verdicts map[string]models.BrandVerdict
	gotNames []string
	calls    int
}

func (m *mockJudge) Judge(_ context.Context, _ string, brandNames []string) map[string]models.BrandVerdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gotNames = brandNames
	if m.verdicts == nil {
		return map[string]models.BrandVerdict{}
	}
	return m.verdicts
}

func testBrands() []models.Brand {
	return []models.Brand{
		{Name: "Air Bank", Type: "bank", Keywords: []string{"Air Bank", "airbank"}, URLs: []string{"airbank.cz"}},
		{Name: "Moneta", Type: "bank", Keywords: []string{"Moneta"}, URLs: []string{"moneta.cz"}},
		{Name: "Fio", Type: "bank", Keywords: []string{"Fio banka"}},
	}
}

func testRC() models.RunContext {
	return models.RunContext{RunID: "run-1", Timestamp: "2026-08-26 10:00:00", Date: "2026-08-26"}
}

func testQuery() models.Query {
	return models.Query{
		Text:     "best czech banks",
		Category: "banking",
		Product:  "accounts",
		Type:     "broad",
		Persona:  "saver",
	}
}

func TestProcessQuerySuccess(t *testing.T) {
	gateway := &mockGateway{
		name: "perplexity",
		answers: map[string]*common.ProviderAnswer{
			"best czech banks": {
				Text:         "Moneta is popular. Air Bank is loved for its app. Moneta again.",
				Citations:    []string{"https://www.moneta.cz/ucty", "https://neutral.example.com/article"},
				InputTokens:  10,
				OutputTokens: 50,
			},
		},
	}
	j := &mockJudge{verdicts: map[string]models.BrandVerdict{
		"Moneta":   {Sentiment: "POSITIVE", Recommendation: "YES"},
		"Air Bank": {Sentiment: "POSITIVE", Recommendation: "NO"},
	}}

	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), j)
	result := processor.ProcessQuery(context.Background(), testQuery(), []string{"perplexity"}, testRC(), 1)

	if result.Attempts != 1 || result.FailedUnits != 0 || len(result.Failed) != 0 {
		t.Fatalf("expected clean success, got %+v", result)
	}

	// One data row per catalog brand, even unmentioned ones.
	if len(result.DataRows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(result.DataRows))
	}

	rows := make(map[string][]string)
	for _, row := range result.DataRows {
		rows[row[8]] = row
	}

	moneta := rows["Moneta"]
	if moneta[10] != "1" || moneta[11] != "1" {
		t.Errorf("Moneta should have text and citation presence: %v", moneta)
	}
	if moneta[16] != "1" {
		t.Errorf("Moneta rank should be 1, got %q", moneta[16])
	}
	if moneta[12] != "2" {
		t.Errorf("Moneta mention count should be 2, got %q", moneta[12])
	}
	if moneta[14] != "POSITIVE" || moneta[15] != "YES" {
		t.Errorf("Moneta verdict not carried: %v", moneta)
	}

	airbank := rows["Air Bank"]
	if airbank[10] != "1" || airbank[16] != "2" {
		t.Errorf("Air Bank should be mentioned at rank 2: %v", airbank)
	}
	if airbank[11] != "0" {
		t.Errorf("Air Bank should have no citation presence: %v", airbank)
	}

	fio := rows["Fio"]
	if fio[10] != "0" || fio[11] != "0" || fio[12] != "0" {
		t.Errorf("unmentioned brand should carry zero flags and a zero count: %v", fio)
	}
	if fio[16] != "" || fio[14] != "" || fio[15] != "" {
		t.Errorf("unmentioned brand should leave rank and verdict blank: %v", fio)
	}

	// Judge called once with mentioned brands in rank order.
	if j.calls != 1 {
		t.Errorf("expected exactly one judge call, got %d", j.calls)
	}
	if len(j.gotNames) != 2 || j.gotNames[0] != "Moneta" || j.gotNames[1] != "Air Bank" {
		t.Errorf("judge brands not rank ordered: %v", j.gotNames)
	}

	// One url row per citation; first one attributed to Moneta.
	if len(result.URLRows) != 2 {
		t.Fatalf("expected 2 url rows, got %d", len(result.URLRows))
	}
	if result.URLRows[0][9] != "Moneta" || result.URLRows[0][10] != "bank" {
		t.Errorf("citation not attributed: %v", result.URLRows[0])
	}
	if result.URLRows[1][9] != "" {
		t.Errorf("neutral citation should have blank owner: %v", result.URLRows[1])
	}

	// One log row with found count and token usage.
	if len(result.LogRows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(result.LogRows))
	}
	log := result.LogRows[0]
	if log[8] != "2" {
		t.Errorf("found count should be 2, got %q", log[8])
	}
	if log[9] != "10" || log[10] != "50" {
		t.Errorf("token counts not carried: %v", log)
	}
	if !strings.HasPrefix(log[11], "Moneta is popular.") {
		t.Errorf("raw answer missing from log row: %q", log[11])
	}
}

func TestProcessQueryProviderFailure(t *testing.T) {
	gateway := &mockGateway{name: "perplexity"} // always nil
	j := &mockJudge{}

	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), j)
	result := processor.ProcessQuery(context.Background(), testQuery(), []string{"perplexity"}, testRC(), 1)

	if result.FailedUnits != 1 || len(result.Failed) != 1 {
		t.Fatalf("expected exactly one failure, got %+v", result)
	}
	attempt := result.Failed[0]
	if attempt.Provider != "perplexity" || attempt.RetryCount != 1 || attempt.Error != "API timeout/error" {
		t.Errorf("unexpected failed attempt: %+v", attempt)
	}
	if attempt.Query.Text != "best czech banks" || attempt.Query.Category != "banking" {
		t.Errorf("failed attempt should snapshot the query: %+v", attempt.Query)
	}

	if len(result.DataRows) != 0 || len(result.URLRows) != 0 {
		t.Errorf("failure must not produce analysis rows: %+v", result)
	}
	if len(result.LogRows) != 1 {
		t.Fatalf("expected a failure log row, got %d", len(result.LogRows))
	}
	log := result.LogRows[0]
	if log[8] != "0" || log[9] != "0" || log[10] != "0" || log[11] != "ERROR / TIMEOUT" {
		t.Errorf("unexpected failure log row: %v", log)
	}
	if j.calls != 0 {
		t.Errorf("judge must not run on failure, got %d calls", j.calls)
	}
}

func TestProcessQueryIndependentProviders(t *testing.T) {
	working := &mockGateway{
		name: "gemini",
		answers: map[string]*common.ProviderAnswer{
			"best czech banks": {Text: "Moneta wins."},
		},
	}
	broken := &mockGateway{name: "perplexity"}

	processor := NewProcessorService(
		map[string]AnswerGateway{"gemini": working, "perplexity": broken},
		testBrands(), &mockJudge{},
	)
	result := processor.ProcessQuery(context.Background(), testQuery(), []string{"perplexity", "gemini"}, testRC(), 1)

	if result.Attempts != 2 || result.FailedUnits != 1 {
		t.Fatalf("expected one of two providers to fail: %+v", result)
	}
	if len(result.LogRows) != 2 {
		t.Errorf("expected a log row per provider, got %d", len(result.LogRows))
	}
	if len(result.DataRows) != 3 {
		t.Errorf("expected data rows only from the working provider, got %d", len(result.DataRows))
	}
}

func TestProcessQueryTruncatesLongAnswers(t *testing.T) {
	long := strings.Repeat("ý", maxLogResponseLen)
	gateway := &mockGateway{
		name: "gemini",
		answers: map[string]*common.ProviderAnswer{
			"best czech banks": {Text: long},
		},
	}

	processor := NewProcessorService(map[string]AnswerGateway{"gemini": gateway}, testBrands(), &mockJudge{})
	result := processor.ProcessQuery(context.Background(), testQuery(), []string{"gemini"}, testRC(), 1)

	got := result.LogRows[0][11]
	if len(got) > maxLogResponseLen {
		t.Errorf("log response not truncated: %d bytes", len(got))
	}
	for _, r := range got {
		if r != 'ý' {
			t.Errorf("truncation split a rune: found %q", r)
			break
		}
	}
}
