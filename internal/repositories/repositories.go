package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// affected returns how many rows a statement changed.
func affected(result sql.Result) (int64, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// utc normalizes t so stored timestamps compare correctly as text.
func utc(t time.Time) time.Time {
	return t.UTC()
}
