package types

import "time"

// Bookmark is a saved link. A nil Address marks a visual separator
// rather than a navigable item. Position is unique among siblings
// sharing the same FolderID (nil folder counts as one sibling group).
type Bookmark struct {
	ID        string    `json:"id"`
	Address   *string   `json:"address,omitempty"`
	Title     string    `json:"title"`
	Icon      *string   `json:"icon,omitempty"`
	FolderID  *string   `json:"folder_id,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookmarkFolder is a node in the bookmark forest. Parent references
// are not validated for cycles; callers must not create them.
type BookmarkFolder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry records visits to one distinct address. Repeat visits
// increment VisitCount and refresh Timestamp/Title in place.
type HistoryEntry struct {
	ID         int64     `json:"id"`
	Address    string    `json:"address"`
	Title      string    `json:"title"`
	Timestamp  time.Time `json:"timestamp"`
	VisitCount int       `json:"visit_count"`
}

// DownloadState is the host-reported lifecycle state of a download.
type DownloadState string

const (
	DownloadInProgress DownloadState = "downloading"
	DownloadCompleted  DownloadState = "completed"
	DownloadFailed     DownloadState = "failed"
	DownloadCancelled  DownloadState = "cancelled"
)

// Terminal reports whether the state ends a download's lifecycle.
func (s DownloadState) Terminal() bool {
	return s == DownloadCompleted || s == DownloadFailed || s == DownloadCancelled
}

// Download mirrors one host-level download. State is persisted exactly
// as reported: the host may report "cancelled" for a transfer that
// reached 100% of TotalBytes, and any reinterpretation of that belongs
// in presentation, not here.
type Download struct {
	ID            string        `json:"id"`
	Filename      string        `json:"filename"`
	SavePath      string        `json:"save_path"`
	TotalBytes    int64         `json:"total_bytes"`
	ReceivedBytes int64         `json:"received_bytes"`
	State         DownloadState `json:"state"`
	MimeType      string        `json:"mime_type,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Setting is one key/value configuration pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
