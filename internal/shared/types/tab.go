package types

import "time"

// Tab represents one open browsing context. The active flag is not part
// of the record; exactly one tab is active at a time and that pointer is
// owned by the tab manager.
type Tab struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Title     string    `json:"title"`
	Icon      string    `json:"icon,omitempty"`
	Loading   bool      `json:"loading"`
	CreatedAt time.Time `json:"created_at"`
}

// TabSnapshot is the persisted projection of a Tab used to restore
// sessions across restarts. Position orders the snapshot set; exactly
// one snapshot per set carries Active.
type TabSnapshot struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Title    string `json:"title"`
	Icon     string `json:"icon,omitempty"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

// TabStats contains tab manager statistics.
type TabStats struct {
	TotalTabs   int     `json:"total_tabs"`
	LoadingTabs int     `json:"loading_tabs"`
	ActiveTabID *string `json:"active_tab_id,omitempty"`
}
