package store

import (
	"database/sql"
	"fmt"

	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// ReplaceTabSet overwrites the saved tab snapshots wholesale. The
// delete and the inserts commit together or not at all; a partially
// applied replace is never observable.
func (s *Store) ReplaceTabSet(snapshots []types.TabSnapshot) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM tab_snapshots`); err != nil {
			return fmt.Errorf("replace tab set: %w", err)
		}
		for _, snap := range snapshots {
			active := 0
			if snap.Active {
				active = 1
			}
			if _, err := tx.Exec(
				`INSERT INTO tab_snapshots(id, address, title, icon, position, active)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				snap.ID, snap.Address, snap.Title, snap.Icon, snap.Position, active); err != nil {
				return fmt.Errorf("replace tab set: %w", err)
			}
		}
		return nil
	})
}

// LoadTabSet returns the saved snapshots ordered by position. An empty
// set means a fresh start.
func (s *Store) LoadTabSet() ([]types.TabSnapshot, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, address, title, icon, position, active FROM tab_snapshots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load tab set: %w", err)
	}
	defer rows.Close()

	var out []types.TabSnapshot
	for rows.Next() {
		var (
			snap   types.TabSnapshot
			icon   sql.NullString
			active int
		)
		if err := rows.Scan(&snap.ID, &snap.Address, &snap.Title, &icon, &snap.Position, &active); err != nil {
			return nil, fmt.Errorf("scan tab snapshot: %w", err)
		}
		snap.Icon = icon.String
		snap.Active = active != 0
		out = append(out, snap)
	}
	return out, rows.Err()
}
