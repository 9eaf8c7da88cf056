// Package catalog loads the monitoring inputs (queries and tracked brands)
// from the tabular store. Columns are located by header name, so sheet-style
// sources can reorder or add columns without breaking the load.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/aeotrack/aeo-workflows/internal/analysis"
	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/store"
)

// Input table names.
const (
	QueriesTable = "queries"
	TermsTable   = "terms"
	URLsTable    = "urls"
)

// header is a case- and punctuation-insensitive column index.
type header map[string]int

func indexHeader(row []string) header {
	h := make(header, len(row))
	for i, cell := range row {
		key := analysis.Normalize(cell)
		if _, exists := h[key]; !exists {
			h[key] = i
		}
	}
	return h
}

func (h header) get(row []string, name string) string {
	idx, ok := h[analysis.Normalize(name)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (h header) has(name string) bool {
	_, ok := h[analysis.Normalize(name)]
	return ok
}

// LoadQueries reads the queries table and returns the active queries in
// sheet order. A missing active column means every query runs.
func LoadQueries(ctx context.Context, st store.TabularStore) ([]models.Query, error) {
	rows, err := st.ReadAll(ctx, QueriesTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("queries table is empty")
	}

	h := indexHeader(rows[0])
	if !h.has("query") {
		return nil, fmt.Errorf("queries table has no query column")
	}

	var queries []models.Query
	for _, row := range rows[1:] {
		text := h.get(row, "query")
		if text == "" {
			continue
		}
		if h.has("active") && !ParseActive(h.get(row, "active")) {
			continue
		}
		queries = append(queries, models.Query{
			ID:         h.get(row, "id"),
			Text:       text,
			Category:   h.get(row, "query category"),
			Product:    h.get(row, "query product"),
			SubProduct: h.get(row, "query sub product"),
			Type:       h.get(row, "query type"),
			Persona:    h.get(row, "persona"),
			Active:     true,
		})
	}

	fmt.Printf("[Catalog] 📋 Loaded %d active queries\n", len(queries))
	return queries, nil
}

// LoadBrands reads the terms table into brands, grouping keyword variants by
// brand name in first-seen order, then folds in owned URL substrings from the
// urls table when it exists. A missing urls table is not an error.
func LoadBrands(ctx context.Context, st store.TabularStore) ([]models.Brand, error) {
	rows, err := st.ReadAll(ctx, TermsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read terms table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("terms table is empty")
	}

	h := indexHeader(rows[0])
	byName := make(map[string]*models.Brand)
	var order []string

	for _, row := range rows[1:] {
		term := h.get(row, "term")
		name := h.get(row, "name")
		if term == "" || name == "" {
			continue
		}

		brand, ok := byName[name]
		if !ok {
			brand = &models.Brand{Name: name, Type: h.get(row, "type")}
			byName[name] = brand
			order = append(order, name)
		}
		brand.Keywords = append(brand.Keywords, term)
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("terms table has no usable rows")
	}

	loadBrandURLs(ctx, st, byName)

	brands := make([]models.Brand, 0, len(order))
	for _, name := range order {
		brands = append(brands, *byName[name])
	}

	fmt.Printf("[Catalog] 🏷️ Loaded %d brands\n", len(brands))
	return brands, nil
}

func loadBrandURLs(ctx context.Context, st store.TabularStore, byName map[string]*models.Brand) {
	rows, err := st.ReadAll(ctx, URLsTable)
	if err != nil || len(rows) == 0 {
		return
	}

	h := indexHeader(rows[0])
	for _, row := range rows[1:] {
		rawURL := h.get(row, "url")
		name := h.get(row, "name")
		if rawURL == "" || name == "" {
			continue
		}
		if brand, ok := byName[name]; ok {
			brand.URLs = append(brand.URLs, strings.ToLower(rawURL))
		}
	}
}

// ParseActive interprets the catalog active flag. TRUE, YES and 1 in any
// case mean active; everything else is inactive.
func ParseActive(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TRUE", "YES", "1":
		return true
	default:
		return false
	}
}
