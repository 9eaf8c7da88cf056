// Package ledger persists failed query+provider attempts across runs as a
// JSON file. The file is the source of truth for retry-only runs: every save
// rewrites it completely, so partial writes from a crashed run cannot leave
// stale duplicates behind.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aeotrack/aeo-workflows/internal/models"
)

type key struct {
	query    string
	provider string
}

func keyOf(attempt models.FailedAttempt) key {
	return key{query: attempt.Query.Text, provider: attempt.Provider}
}

// Load reads the ledger file. A missing file means no failures and is not an
// error; a corrupt file is.
func Load(path string) ([]models.FailedAttempt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	var attempts []models.FailedAttempt
	if err := json.Unmarshal(data, &attempts); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	return attempts, nil
}

// Save rewrites the ledger file with the given attempts. The parent directory
// is created when missing.
func Save(path string, attempts []models.FailedAttempt) error {
	if attempts == nil {
		attempts = []models.FailedAttempt{}
	}

	data, err := json.MarshalIndent(attempts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", path, err)
	}
	return nil
}

// Merge combines ledger entries, deduplicating on (query text, provider).
// The entry with the higher retry count wins a collision, so retry progress
// is monotone. Order is deterministic: first appearance across the inputs.
func Merge(existing, fresh []models.FailedAttempt) []models.FailedAttempt {
	best := make(map[key]models.FailedAttempt)
	var order []key

	for _, attempt := range append(append([]models.FailedAttempt(nil), existing...), fresh...) {
		k := keyOf(attempt)
		current, seen := best[k]
		if !seen {
			best[k] = attempt
			order = append(order, k)
			continue
		}
		if attempt.RetryCount > current.RetryCount {
			best[k] = attempt
		}
	}

	merged := make([]models.FailedAttempt, 0, len(order))
	for _, k := range order {
		merged = append(merged, best[k])
	}
	return merged
}

// MergeAndSave folds fresh failures into the ledger on disk.
func MergeAndSave(path string, fresh []models.FailedAttempt) error {
	existing, err := Load(path)
	if err != nil {
		return err
	}
	return Save(path, Merge(existing, fresh))
}

// Eligible splits ledger entries into those still under the retry ceiling
// and those at or above it. Entries at the ceiling are skipped by retry runs
// but stay in the ledger for operators to inspect.
func Eligible(attempts []models.FailedAttempt, ceiling int) (eligible, atCeiling []models.FailedAttempt) {
	for _, attempt := range attempts {
		if attempt.RetryCount >= ceiling {
			atCeiling = append(atCeiling, attempt)
			continue
		}
		eligible = append(eligible, attempt)
	}
	return eligible, atCeiling
}
