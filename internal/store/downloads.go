package store

import (
	"fmt"
	"time"

	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// InsertDownload records a newly observed download.
func (s *Store) InsertDownload(d *types.Download) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO downloads(id, filename, save_path, total_bytes, received_bytes, state, mime_type, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Filename, d.SavePath, d.TotalBytes, d.ReceivedBytes,
		string(d.State), d.MimeType, d.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// UpdateDownloadProgress mirrors a progress tick.
func (s *Store) UpdateDownloadProgress(downloadID string, received, total int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(
		`UPDATE downloads SET received_bytes = ?, total_bytes = ? WHERE id = ?`,
		received, total, downloadID)
	if err != nil {
		return fmt.Errorf("update download progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinishDownload writes the terminal state exactly as the host reported
// it, together with the final byte counts. The host is known to report
// "cancelled" for transfers that in fact reached 100% of their declared
// bytes; that ambiguity is passed through untouched and any friendlier
// reading belongs to presentation.
func (s *Store) FinishDownload(downloadID string, state types.DownloadState, mimeType string, received, total int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(
		`UPDATE downloads SET state = ?, mime_type = ?, received_bytes = ?, total_bytes = ? WHERE id = ?`,
		string(state), mimeType, received, total, downloadID)
	if err != nil {
		return fmt.Errorf("finish download: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDownloads returns downloads, most recent first.
func (s *Store) ListDownloads(limit int) ([]types.Download, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, filename, save_path, total_bytes, received_bytes, state, mime_type, timestamp
		 FROM downloads ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var out []types.Download
	for rows.Next() {
		var (
			d     types.Download
			state string
			ts    int64
		)
		if err := rows.Scan(&d.ID, &d.Filename, &d.SavePath, &d.TotalBytes,
			&d.ReceivedBytes, &state, &d.MimeType, &ts); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		d.State = types.DownloadState(state)
		d.Timestamp = time.UnixMilli(ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ClearFinishedDownloads removes rows in a terminal state.
func (s *Store) ClearFinishedDownloads() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.Exec(`DELETE FROM downloads WHERE state != ?`, string(types.DownloadInProgress))
	if err != nil {
		return fmt.Errorf("clear downloads: %w", err)
	}
	return nil
}
