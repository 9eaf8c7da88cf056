// Package store holds the tabular persistence layer. The pipeline treats its
// inputs and outputs as named tables of string rows under a fixed header, so
// the store surface is exactly the three operations the pipeline consumes.
package store

import "context"

// TabularStore is the append-oriented table backend the pipeline writes
// monitoring rows to and reads its catalog from.
type TabularStore interface {
	// EnsureTable creates the table with the given header when it does not
	// exist yet. Existing tables are left untouched.
	EnsureTable(ctx context.Context, name string, header []string) error
	// AppendRows appends rows to the named table. Rows shorter than the
	// header are padded with empty strings.
	AppendRows(ctx context.Context, name string, rows [][]string) error
	// ReadAll returns the header row followed by every data row.
	ReadAll(ctx context.Context, name string) ([][]string, error)
}
