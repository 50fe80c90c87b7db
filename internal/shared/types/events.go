package types

// SurfaceEventKind enumerates the closed set of lifecycle events a
// content surface reports back to its owner.
type SurfaceEventKind string

const (
	EventLoadStarted    SurfaceEventKind = "load_started"
	EventLoadStopped    SurfaceEventKind = "load_stopped"
	EventLoadFailed     SurfaceEventKind = "load_failed"
	EventNavigated      SurfaceEventKind = "navigated"
	EventTitleChanged   SurfaceEventKind = "title_changed"
	EventIconChanged    SurfaceEventKind = "icon_changed"
	EventSearchResult   SurfaceEventKind = "search_result"
	EventPopupRequested SurfaceEventKind = "popup_requested"
)

// SurfaceEvent is one observation from a content surface. Only the
// fields relevant to Kind are populated.
type SurfaceEvent struct {
	Kind SurfaceEventKind

	// EventNavigated, EventPopupRequested
	Address      string
	SameDocument bool

	// EventTitleChanged
	Title string

	// EventIconChanged; may be relative to the tab's current address
	Icon string

	// EventSearchResult
	Matches     int
	ActiveMatch int

	// EventLoadFailed
	Reason string
}

// UIEventType enumerates notifications pushed to the chrome UI.
type UIEventType string

const (
	UITabCreated       UIEventType = "tab.created"
	UITabActivated     UIEventType = "tab.activated"
	UITabClosed        UIEventType = "tab.closed"
	UITabUpdated       UIEventType = "tab.updated"
	UIFindStateRestore UIEventType = "tab.find_state"
	UIFindResult       UIEventType = "tab.find_result"
	UIDownloadUpdated  UIEventType = "download.updated"
	UISessionRestored  UIEventType = "session.restored"
)

// UIEvent is one push notification for the presentation layer. Fields
// carries only the changed keys for partial tab updates.
type UIEvent struct {
	Type      UIEventType            `json:"type"`
	TabID     string                 `json:"tab_id,omitempty"`
	Tab       *Tab                   `json:"tab,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	FindOpen  *bool                  `json:"find_open,omitempty"`
	Download  *Download              `json:"download,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Notifier receives UI events for delivery to the presentation layer.
type Notifier interface {
	Publish(UIEvent)
}
