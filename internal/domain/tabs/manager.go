// Package tabs is the tab/session coordinator: the single source of
// truth for what tabs exist, in what order, and which one is active.
//
// The registry of tab records is owned exclusively by the Manager.
// Other components hold tab identifiers, never references, so a closed
// tab cannot dangle.
package tabs

import (
	"context"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/engine"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/id"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// Store is the slice of the persistence gateway the coordinator needs.
type Store interface {
	ReplaceTabSet([]types.TabSnapshot) error
	LoadTabSet() ([]types.TabSnapshot, error)
	VisitHistory(address, title string, at time.Time) error
}

// Layout describes the space available to content surfaces.
type Layout struct {
	Width         int
	Height        int
	ChromeHeight  int // toolbar/tab strip
	FindBarHeight int // shown only while a tab's find bar is open
}

// DefaultLayout matches the default window size.
var DefaultLayout = Layout{Width: 1280, Height: 800, ChromeHeight: 88, FindBarHeight: 36}

// tabRecord is the coordinator's private per-tab state. The embedded
// Tab is the externally visible projection; copies of it leave the
// lock, never pointers.
type tabRecord struct {
	tab        types.Tab
	surface    engine.Surface
	findOpen   bool // find bar visible for this tab
	findActive bool // highlights currently on the page
}

// Manager orchestrates tab lifecycle.
type Manager struct {
	mu       sync.Mutex
	tabs     map[string]*tabRecord
	order    []string // creation order
	activeID string

	factory  engine.Factory
	store    Store
	notifier types.Notifier
	metrics  *monitoring.Metrics
	log      *logging.Logger
	layout   Layout

	titles  *bluemonday.Policy
	icons   *iconProber
	omnibox *navigation.Omnibox

	// iconSettleDelay is how long after a load or navigation the icon
	// probe waits for late link tags. Shortened in tests.
	iconSettleDelay time.Duration
}

// NewManager creates a tab coordinator.
func NewManager(factory engine.Factory, st Store, notifier types.Notifier, log *logging.Logger) *Manager {
	return &Manager{
		tabs:            make(map[string]*tabRecord),
		factory:         factory,
		store:           st,
		notifier:        notifier,
		log:             log.Named("tabs"),
		layout:          DefaultLayout,
		titles:          bluemonday.StrictPolicy(),
		icons:           newIconProber(log),
		iconSettleDelay: 300 * time.Millisecond,
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithOmnibox lets the coordinator resolve open requests raised by the
// omnibox overlay page.
func (m *Manager) WithOmnibox(o *navigation.Omnibox) *Manager {
	m.omnibox = o
	return m
}

// SetLayout updates the content area geometry. The active surface is
// resized on the next activation.
func (m *Manager) SetLayout(l Layout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layout = l
}

// Create opens a new tab and makes it active immediately; there is no
// silent background-tab creation. An empty address opens the built-in
// new-tab page.
func (m *Manager) Create(ctx context.Context, address string) (*types.Tab, error) {
	if address == "" {
		address = navigation.NewTabAddress
	}
	return m.create(ctx, address, navigation.DefaultTitle(address), defaultIcon(address))
}

func (m *Manager) create(ctx context.Context, address, title, icon string) (*types.Tab, error) {
	tabID := id.NewTabID()

	surface, err := m.factory.Create(ctx, address, func(ev types.SurfaceEvent) {
		m.Dispatch(ctx, tabID, ev)
	})
	if err != nil {
		return nil, err
	}

	rec := &tabRecord{
		tab: types.Tab{
			ID:        tabID,
			Address:   address,
			Title:     title,
			Icon:      icon,
			Loading:   true,
			CreatedAt: time.Now(),
		},
		surface: surface,
	}

	m.mu.Lock()
	m.tabs[tabID] = rec
	m.order = append(m.order, tabID)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.TabsCreated.Inc()
		m.metrics.TabsOpen.Inc()
	}

	tabCopy := rec.tab
	m.publish(types.UIEvent{Type: types.UITabCreated, TabID: tabID, Tab: &tabCopy})

	m.Activate(ctx, tabID)

	if err := surface.Load(ctx, address); err != nil {
		m.log.Warn("initial load failed", zap.String("tab", tabID), zap.Error(err))
	}
	return &tabCopy, nil
}

// Activate switches to the given tab. Unknown ids are a silent no-op:
// the UI and coordinator may momentarily diverge across the async
// boundary, and that is not an error.
//
// Ordering contract: the TabActivated notification is always published
// before the FindStateRestored notification for the same switch, so the
// UI learns the new active id before it is told which find bar to show.
func (m *Manager) Activate(ctx context.Context, tabID string) bool {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if m.activeID == tabID {
		m.mu.Unlock()
		return true
	}

	outgoing := m.tabs[m.activeID]
	m.activeID = tabID
	findOpen := rec.findOpen
	if outgoing != nil {
		outgoing.findActive = false
	}
	layout := m.layout
	m.mu.Unlock()

	if outgoing != nil {
		if err := outgoing.surface.StopFind(ctx); err != nil {
			m.log.Debug("stop find on switch", zap.Error(err))
		}
		if err := outgoing.surface.Hide(ctx); err != nil {
			m.log.Warn("hide surface", zap.Error(err))
		}
	}

	if err := rec.surface.Show(ctx); err != nil {
		m.log.Warn("show surface", zap.Error(err))
	}
	height := layout.Height - layout.ChromeHeight
	if findOpen {
		height -= layout.FindBarHeight
	}
	if err := rec.surface.SetBounds(ctx, layout.Width, height); err != nil {
		m.log.Warn("resize surface", zap.Error(err))
	}

	if m.metrics != nil {
		m.metrics.TabSwitches.Inc()
	}

	m.publish(types.UIEvent{Type: types.UITabActivated, TabID: tabID})
	m.publish(types.UIEvent{Type: types.UIFindStateRestore, TabID: tabID, FindOpen: &findOpen})
	return true
}

// Close destroys a tab. Unknown ids are a silent no-op. If the closed
// tab was active, the tab created right after it (falling back to the
// one before) becomes active; closing the last tab replaces it with a
// fresh default tab, so the tab set is never empty while the
// application runs. Every close ends with a persistence checkpoint of
// the full tab set; a checkpoint failure is returned so the UI can
// report it.
func (m *Manager) Close(ctx context.Context, tabID string) (bool, error) {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}

	idx := indexOf(m.order, tabID)
	delete(m.tabs, tabID)
	m.order = append(m.order[:idx], m.order[idx+1:]...)

	wasActive := m.activeID == tabID
	var successor string
	if wasActive {
		m.activeID = ""
		if len(m.order) > 0 {
			// Deterministic tie-break: prefer the tab that was created
			// right after the closed one, else the one before it.
			if idx < len(m.order) {
				successor = m.order[idx]
			} else {
				successor = m.order[len(m.order)-1]
			}
		}
	}
	m.mu.Unlock()

	if err := rec.surface.StopFind(ctx); err != nil {
		m.log.Debug("stop find on close", zap.Error(err))
	}
	if err := rec.surface.Close(ctx); err != nil {
		m.log.Warn("close surface", zap.String("tab", tabID), zap.Error(err))
	}

	if m.metrics != nil {
		m.metrics.TabsClosed.Inc()
		m.metrics.TabsOpen.Dec()
	}
	m.publish(types.UIEvent{Type: types.UITabClosed, TabID: tabID})

	if wasActive {
		if successor != "" {
			m.Activate(ctx, successor)
		} else {
			if _, err := m.Create(ctx, ""); err != nil {
				return true, err
			}
		}
	}

	return true, m.SaveSession()
}

// Get returns a copy of one tab.
func (m *Manager) Get(tabID string) (*types.Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tabs[tabID]
	if !ok {
		return nil, false
	}
	tabCopy := rec.tab
	return &tabCopy, true
}

// List returns copies of all tabs in creation order.
func (m *Manager) List() []types.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Tab, 0, len(m.order))
	for _, tid := range m.order {
		out = append(out, m.tabs[tid].tab)
	}
	return out
}

// ActiveID returns the active tab's id, or "" when no tab exists yet.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Stats returns coordinator statistics.
func (m *Manager) Stats() types.TabStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := types.TabStats{TotalTabs: len(m.tabs)}
	for _, rec := range m.tabs {
		if rec.tab.Loading {
			stats.LoadingTabs++
		}
	}
	if m.activeID != "" {
		active := m.activeID
		stats.ActiveTabID = &active
	}
	return stats
}

// NavigateTo loads address in the tab. Unknown ids are a no-op. The
// reserved open host is resolved through the omnibox heuristic before
// it reaches the surface.
func (m *Manager) NavigateTo(ctx context.Context, tabID, address string) bool {
	if m.omnibox != nil {
		if resolved, ok := m.omnibox.OpenTarget(address); ok {
			address = resolved
		}
	}
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if ok {
		rec.tab.Address = address
		rec.tab.Loading = true
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	if err := rec.surface.Load(ctx, address); err != nil {
		// A superseded navigation is informational, never fatal.
		m.log.Info("navigation error", zap.String("tab", tabID), zap.Error(err))
	}
	return true
}

// Back, Forward and Reload traverse the active tab's history.
func (m *Manager) Back(ctx context.Context) {
	if rec := m.activeRecord(); rec != nil {
		if err := rec.surface.Back(ctx); err != nil {
			m.log.Info("back navigation error", zap.Error(err))
		}
	}
}

func (m *Manager) Forward(ctx context.Context) {
	if rec := m.activeRecord(); rec != nil {
		if err := rec.surface.Forward(ctx); err != nil {
			m.log.Info("forward navigation error", zap.Error(err))
		}
	}
}

func (m *Manager) Reload(ctx context.Context) {
	if rec := m.activeRecord(); rec != nil {
		if err := rec.surface.Reload(ctx); err != nil {
			m.log.Info("reload error", zap.Error(err))
		}
	}
}

// PushDownloadsToAll delivers a downloads payload to every open tab's
// surface so in-page downloads views update without polling.
func (m *Manager) PushDownloadsToAll(ctx context.Context, payload []byte) {
	m.mu.Lock()
	surfaces := make([]engine.Surface, 0, len(m.order))
	for _, tid := range m.order {
		surfaces = append(surfaces, m.tabs[tid].surface)
	}
	m.mu.Unlock()

	for _, s := range surfaces {
		if err := s.PushDownloads(ctx, payload); err != nil {
			m.log.Debug("push downloads", zap.Error(err))
		}
	}
}

// Shutdown persists the tab set and closes every surface.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.SaveSession()

	m.mu.Lock()
	records := make([]*tabRecord, 0, len(m.order))
	for _, tid := range m.order {
		records = append(records, m.tabs[tid])
	}
	m.mu.Unlock()

	for _, rec := range records {
		if cerr := rec.surface.Close(ctx); cerr != nil {
			m.log.Warn("close surface on shutdown", zap.Error(cerr))
		}
	}
	return err
}

func (m *Manager) activeRecord() *tabRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabs[m.activeID]
}

func (m *Manager) publish(ev types.UIEvent) {
	if m.notifier == nil {
		return
	}
	ev.Timestamp = time.Now().UnixMilli()
	m.notifier.Publish(ev)
}

func defaultIcon(address string) string {
	if navigation.IsInternal(address) {
		return navigation.AppIconAddress
	}
	return ""
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
