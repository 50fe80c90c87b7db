package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// VisitHistory records a visit to address. At most one row exists per
// distinct address: a repeat visit increments visit_count and refreshes
// timestamp and title instead of inserting. Under the single-connection
// model the check-then-write is race-free; a concurrent deployment
// would need an upsert against the UNIQUE(address) constraint instead.
func (s *Store) VisitHistory(address, title string, at time.Time) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	var id int64
	err = db.QueryRow(`SELECT id FROM history WHERE address = ?`, address).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.Exec(
			`INSERT INTO history(address, title, timestamp, visit_count) VALUES (?, ?, ?, 1)`,
			address, title, at.UnixMilli())
	case err == nil:
		_, err = db.Exec(
			`UPDATE history SET title = ?, timestamp = ?, visit_count = visit_count + 1 WHERE id = ?`,
			title, at.UnixMilli(), id)
	}
	if err != nil {
		return fmt.Errorf("visit history: %w", err)
	}
	return nil
}

// RecentHistory returns up to limit entries, most recent first.
func (s *Store) RecentHistory(limit int) ([]types.HistoryEntry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, address, title, timestamp, visit_count FROM history
		 ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return scanHistory(rows)
}

// SearchHistory returns entries whose address or title contains term,
// most recent first.
func (s *Store) SearchHistory(term string, limit int) ([]types.HistoryEntry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	like := "%" + term + "%"
	rows, err := db.Query(
		`SELECT id, address, title, timestamp, visit_count FROM history
		 WHERE address LIKE ? OR title LIKE ?
		 ORDER BY timestamp DESC LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	return scanHistory(rows)
}

// GetHistoryByAddress returns the single entry for address, or
// ErrNotFound.
func (s *Store) GetHistoryByAddress(address string) (*types.HistoryEntry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var (
		e  types.HistoryEntry
		ts int64
	)
	err = db.QueryRow(
		`SELECT id, address, title, timestamp, visit_count FROM history WHERE address = ?`,
		address).Scan(&e.ID, &e.Address, &e.Title, &ts, &e.VisitCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	e.Timestamp = time.UnixMilli(ts)
	return &e, nil
}

// DeleteHistory removes one entry.
func (s *Store) DeleteHistory(id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// ClearHistory removes all entries.
func (s *Store) ClearHistory() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func scanHistory(rows *sql.Rows) ([]types.HistoryEntry, error) {
	defer rows.Close()
	var out []types.HistoryEntry
	for rows.Next() {
		var (
			e  types.HistoryEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Address, &e.Title, &ts, &e.VisitCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
