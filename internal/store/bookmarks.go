package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lumenbrowser/lumen/internal/shared/id"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// AddBookmark inserts a bookmark at the end of its sibling group (the
// set of bookmarks sharing folderID, with nil folder as its own group).
// A nil address inserts a separator. Returns the stored record.
func (s *Store) AddBookmark(address *string, title string, icon, folderID *string) (*types.Bookmark, error) {
	now := time.Now()
	b := &types.Bookmark{
		ID:        id.NewBookmarkID(),
		Address:   address,
		Title:     title,
		Icon:      icon,
		FolderID:  folderID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.inTx(func(tx *sql.Tx) error {
		pos, err := nextSiblingPosition(tx, "bookmarks", "folder_id", folderID)
		if err != nil {
			return err
		}
		b.Position = pos
		_, err = tx.Exec(
			`INSERT INTO bookmarks(id, address, title, icon, folder_id, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Address, b.Title, b.Icon, b.FolderID, b.Position,
			now.UnixMilli(), now.UnixMilli())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add bookmark: %w", err)
	}
	return b, nil
}

// UpdateBookmark rewrites the mutable fields of a bookmark.
func (s *Store) UpdateBookmark(bm *types.Bookmark) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(
		`UPDATE bookmarks SET address = ?, title = ?, icon = ?, updated_at = ? WHERE id = ?`,
		bm.Address, bm.Title, bm.Icon, time.Now().UnixMilli(), bm.ID)
	if err != nil {
		return fmt.Errorf("update bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveBookmark moves a bookmark to another folder, appending it to the
// target sibling group and closing the position gap it leaves behind so
// sibling positions stay contiguous.
func (s *Store) MoveBookmark(bookmarkID string, folderID *string) error {
	return s.inTx(func(tx *sql.Tx) error {
		var oldFolder sql.NullString
		var oldPos int
		err := tx.QueryRow(`SELECT folder_id, position FROM bookmarks WHERE id = ?`, bookmarkID).
			Scan(&oldFolder, &oldPos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		pos, err := nextSiblingPosition(tx, "bookmarks", "folder_id", folderID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE bookmarks SET folder_id = ?, position = ?, updated_at = ? WHERE id = ?`,
			folderID, pos, time.Now().UnixMilli(), bookmarkID); err != nil {
			return err
		}
		return closeSiblingGap(tx, "bookmarks", "folder_id", nullableString(oldFolder), oldPos)
	})
}

// DeleteBookmark removes a bookmark and closes its sibling-position gap.
func (s *Store) DeleteBookmark(bookmarkID string) error {
	return s.inTx(func(tx *sql.Tx) error {
		var folder sql.NullString
		var pos int
		err := tx.QueryRow(`SELECT folder_id, position FROM bookmarks WHERE id = ?`, bookmarkID).
			Scan(&folder, &pos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM bookmarks WHERE id = ?`, bookmarkID); err != nil {
			return err
		}
		return closeSiblingGap(tx, "bookmarks", "folder_id", nullableString(folder), pos)
	})
}

// ListBookmarks returns the bookmarks of one folder (nil = root),
// ordered by position.
func (s *Store) ListBookmarks(folderID *string) ([]types.Bookmark, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, address, title, icon, folder_id, position, created_at, updated_at
		 FROM bookmarks WHERE folder_id IS ? ORDER BY position`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []types.Bookmark
	for rows.Next() {
		var (
			b                types.Bookmark
			created, updated int64
		)
		if err := rows.Scan(&b.ID, &b.Address, &b.Title, &b.Icon, &b.FolderID,
			&b.Position, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.CreatedAt = time.UnixMilli(created)
		b.UpdatedAt = time.UnixMilli(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddFolder inserts a folder at the end of its sibling group. Parent
// references are not validated for cycles; callers must not create
// them.
func (s *Store) AddFolder(name string, parentID *string) (*types.BookmarkFolder, error) {
	now := time.Now()
	f := &types.BookmarkFolder{
		ID:        id.NewFolderID(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
	}
	err := s.inTx(func(tx *sql.Tx) error {
		pos, err := nextSiblingPosition(tx, "bookmark_folders", "parent_id", parentID)
		if err != nil {
			return err
		}
		f.Position = pos
		_, err = tx.Exec(
			`INSERT INTO bookmark_folders(id, name, parent_id, position, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.ParentID, f.Position, now.UnixMilli())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add folder: %w", err)
	}
	return f, nil
}

// RenameFolder changes a folder's name.
func (s *Store) RenameFolder(folderID, name string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE bookmark_folders SET name = ? WHERE id = ?`, name, folderID)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFolder removes a folder. Contained bookmarks move to the root
// group and child folders are reparented to the deleted folder's
// parent, all in one transaction.
func (s *Store) DeleteFolder(folderID string) error {
	return s.inTx(func(tx *sql.Tx) error {
		var parent sql.NullString
		var pos int
		err := tx.QueryRow(`SELECT parent_id, position FROM bookmark_folders WHERE id = ?`, folderID).
			Scan(&parent, &pos)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		// Reposition orphaned bookmarks at the end of the root group.
		rows, err := tx.Query(`SELECT id FROM bookmarks WHERE folder_id = ? ORDER BY position`, folderID)
		if err != nil {
			return err
		}
		var orphans []string
		for rows.Next() {
			var bid string
			if err := rows.Scan(&bid); err != nil {
				rows.Close()
				return err
			}
			orphans = append(orphans, bid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, bid := range orphans {
			next, err := nextSiblingPosition(tx, "bookmarks", "folder_id", nil)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				`UPDATE bookmarks SET folder_id = NULL, position = ? WHERE id = ?`, next, bid); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(
			`UPDATE bookmark_folders SET parent_id = ? WHERE parent_id = ?`,
			nullableString(parent), folderID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM bookmark_folders WHERE id = ?`, folderID); err != nil {
			return err
		}
		return closeSiblingGap(tx, "bookmark_folders", "parent_id", nullableString(parent), pos)
	})
}

// ListFolders returns the child folders of parentID (nil = roots),
// ordered by position.
func (s *Store) ListFolders(parentID *string) ([]types.BookmarkFolder, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT id, name, parent_id, position, created_at FROM bookmark_folders
		 WHERE parent_id IS ? ORDER BY position`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	var out []types.BookmarkFolder
	for rows.Next() {
		var (
			f       types.BookmarkFolder
			created int64
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.Position, &created); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.CreatedAt = time.UnixMilli(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// nextSiblingPosition returns the next zero-based position within the
// sibling group identified by groupCol = groupVal (NULL-safe).
func nextSiblingPosition(tx *sql.Tx, table, groupCol string, groupVal *string) (int, error) {
	var max sql.NullInt64
	q := fmt.Sprintf(`SELECT MAX(position) FROM %s WHERE %s IS ?`, table, groupCol)
	if err := tx.QueryRow(q, groupVal).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// closeSiblingGap shifts positions above removedPos down by one within
// a sibling group, keeping the zero-based sequence contiguous.
func closeSiblingGap(tx *sql.Tx, table, groupCol string, groupVal *string, removedPos int) error {
	q := fmt.Sprintf(`UPDATE %s SET position = position - 1 WHERE %s IS ? AND position > ?`, table, groupCol)
	_, err := tx.Exec(q, groupVal, removedPos)
	return err
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
