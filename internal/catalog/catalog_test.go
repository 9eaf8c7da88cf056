package catalog

import (
	"context"
	"testing"

	"github.com/aeotrack/aeo-workflows/internal/store"
)

func TestLoadQueries(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed(QueriesTable,
		[]string{"Query", "Query Category", "Query Product", "Query Type", "Persona", "Active"},
		[][]string{
			{"best banks in czechia", "banking", "accounts", "broad", "saver", "TRUE"},
			{"cheapest mortgage", "banking", "mortgages", "specific", "buyer", "no"},
			{"", "banking", "", "", "", "TRUE"},
			{"best savings rates", "banking", "savings", "broad", "saver", "yes"},
		},
	)

	queries, err := LoadQueries(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 active queries, got %d", len(queries))
	}
	if queries[0].Text != "best banks in czechia" || queries[1].Text != "best savings rates" {
		t.Errorf("unexpected queries: %+v", queries)
	}
	if queries[0].Category != "banking" || queries[0].Persona != "saver" {
		t.Errorf("column mapping broken: %+v", queries[0])
	}
}

func TestLoadQueriesSanitizedHeader(t *testing.T) {
	// Postgres-backed tables surface headers as lowercase identifiers.
	m := store.NewMemoryStore()
	m.Seed(QueriesTable,
		[]string{"query", "query_category", "query_type", "persona", "active"},
		[][]string{{"best banks", "banking", "broad", "saver", "1"}},
	)

	queries, err := LoadQueries(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	if len(queries) != 1 || queries[0].Category != "banking" {
		t.Fatalf("sanitized header lookup broken: %+v", queries)
	}
}

func TestLoadQueriesMissingActiveColumnMeansActive(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed(QueriesTable,
		[]string{"Query"},
		[][]string{{"q1"}, {"q2"}},
	)

	queries, err := LoadQueries(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected all queries active, got %d", len(queries))
	}
}

func TestLoadQueriesMissingTable(t *testing.T) {
	if _, err := LoadQueries(context.Background(), store.NewMemoryStore()); err == nil {
		t.Fatal("expected error for missing queries table")
	}
}

func TestLoadBrandsGroupsTermsAndURLs(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed(TermsTable,
		[]string{"Term", "Name", "Type"},
		[][]string{
			{"Air Bank", "Air Bank", "bank"},
			{"airbank", "Air Bank", "bank"},
			{"Moneta", "Moneta", "bank"},
		},
	)
	m.Seed(URLsTable,
		[]string{"URL", "Name"},
		[][]string{
			{"AirBank.cz", "Air Bank"},
			{"moneta.cz", "Moneta"},
			{"unknown.cz", "Nobody"},
		},
	)

	brands, err := LoadBrands(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadBrands failed: %v", err)
	}
	if len(brands) != 2 {
		t.Fatalf("expected 2 brands, got %d", len(brands))
	}
	if brands[0].Name != "Air Bank" || len(brands[0].Keywords) != 2 {
		t.Errorf("expected grouped keywords in first-seen order: %+v", brands[0])
	}
	if len(brands[0].URLs) != 1 || brands[0].URLs[0] != "airbank.cz" {
		t.Errorf("expected lowercased brand URL: %+v", brands[0].URLs)
	}
}

func TestLoadBrandsMissingURLsTableIsFine(t *testing.T) {
	m := store.NewMemoryStore()
	m.Seed(TermsTable,
		[]string{"Term", "Name", "Type"},
		[][]string{{"Moneta", "Moneta", "bank"}},
	)

	brands, err := LoadBrands(context.Background(), m)
	if err != nil {
		t.Fatalf("LoadBrands failed: %v", err)
	}
	if len(brands) != 1 || len(brands[0].URLs) != 0 {
		t.Fatalf("unexpected brands: %+v", brands)
	}
}

func TestParseActive(t *testing.T) {
	active := []string{"TRUE", "true", "True", "YES", "yes", "1", " 1 "}
	inactive := []string{"", "FALSE", "no", "0", "maybe"}

	for _, v := range active {
		if !ParseActive(v) {
			t.Errorf("ParseActive(%q) = false, want true", v)
		}
	}
	for _, v := range inactive {
		if ParseActive(v) {
			t.Errorf("ParseActive(%q) = true, want false", v)
		}
	}
}
