package catalog

import (
	"context"
	"fmt"
)

// StoredEntry represents an entry stored in the database with metadata useful for debugging.
type StoredEntry struct {
	Entry
	UpdatedAt string `json:"updated_at"`
}

// StoredEntries returns every entry tracked in the database ordered by path.
func (c *Catalog) StoredEntries(ctx context.Context) ([]StoredEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT `+entryColumns+`, updated_at
FROM entries
ORDER BY path
`)
	if err != nil {
		return nil, fmt.Errorf("query stored entries: %w", err)
	}
	defer rows.Close()

	var entries []StoredEntry
	for rows.Next() {
		var stored StoredEntry
		entry, err := scanEntry(func(dest ...any) error {
			return rows.Scan(append(dest, &stored.UpdatedAt)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan stored entry: %w", err)
		}
		stored.Entry = entry
		entries = append(entries, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored entries: %w", err)
	}

	return entries, nil
}

// StoredEntry returns the stored record for a single relative path.
func (c *Catalog) StoredEntry(ctx context.Context, relPath string) (Entry, bool, error) {
	return loadEntry(ctx, c.db, relPath)
}
