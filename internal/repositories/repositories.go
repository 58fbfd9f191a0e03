package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// NextSequence increments the counter in "<table>_sequence" and returns the new value.
//
// Sequences give jobs a stable, human-readable order (job #42) independent of their ids. The single
// UPDATE ... RETURNING statement keeps concurrent callers from observing the same value.
func NextSequence(ctx context.Context, db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRowContext(ctx, query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return sequence, nil
}
