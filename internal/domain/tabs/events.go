package tabs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

func tabUpdated(tabID string, fields map[string]any) types.UIEvent {
	return types.UIEvent{Type: types.UITabUpdated, TabID: tabID, Fields: fields}
}

// Dispatch ingests a surface event for a tab. Events for unknown ids
// are dropped: the surface's event goroutine races tab closure, and a
// late event for a dead tab carries no information worth keeping.
func (m *Manager) Dispatch(ctx context.Context, tabID string, ev types.SurfaceEvent) {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return
	}

	var (
		fields       map[string]any
		eventType    = types.UITabUpdated
		recordVisit  bool
		probeAddress string
		popupAddress string
		visitAddress string
		visitTitle   string
	)

	switch ev.Kind {
	case types.EventLoadStarted:
		rec.tab.Loading = true
		fields = map[string]any{"loading": true}

	case types.EventLoadStopped:
		rec.tab.Loading = false
		fields = map[string]any{"loading": false}
		if !navigation.IsInternal(rec.tab.Address) {
			recordVisit = true
			visitAddress = rec.tab.Address
			visitTitle = rec.tab.Title
			probeAddress = rec.tab.Address
		}

	case types.EventLoadFailed:
		// Supersession and engine-level retries are handled below the
		// coordinator; at this layer a failed load just stops spinning.
		rec.tab.Loading = false
		fields = map[string]any{"loading": false}
		m.log.Info("load failed",
			zap.String("tab", tabID),
			zap.String("address", rec.tab.Address),
			zap.String("reason", ev.Reason))

	case types.EventNavigated:
		// The reserved open host is a command, not a destination: the
		// omnibox overlay navigates to it to request a resolved load.
		if m.omnibox != nil {
			if resolved, ok := m.omnibox.OpenTarget(ev.Address); ok {
				m.mu.Unlock()
				m.NavigateTo(ctx, tabID, resolved)
				return
			}
		}
		rec.tab.Address = ev.Address
		fields = map[string]any{"address": ev.Address}
		if navigation.IsInternal(ev.Address) {
			rec.tab.Title = navigation.DefaultTitle(ev.Address)
			rec.tab.Icon = navigation.AppIconAddress
			fields["title"] = rec.tab.Title
			fields["icon"] = rec.tab.Icon
		} else if !ev.SameDocument {
			probeAddress = ev.Address
		}

	case types.EventTitleChanged:
		// Titles come from page content; strip any markup before the
		// value reaches the UI or the history table.
		title := m.titles.Sanitize(ev.Title)
		if title == "" || navigation.IsInternal(rec.tab.Address) {
			break
		}
		rec.tab.Title = title
		fields = map[string]any{"title": title}

	case types.EventIconChanged:
		if navigation.IsInternal(rec.tab.Address) {
			break
		}
		icon := resolveIconURL(rec.tab.Address, ev.Icon)
		if icon == "" {
			break
		}
		rec.tab.Icon = icon
		fields = map[string]any{"icon": icon}

	case types.EventSearchResult:
		rec.findActive = ev.Matches > 0
		eventType = types.UIFindResult
		fields = map[string]any{"matches": ev.Matches, "active_match": ev.ActiveMatch}

	case types.EventPopupRequested:
		popupAddress = ev.Address
	}
	m.mu.Unlock()

	if fields != nil {
		m.publish(types.UIEvent{Type: eventType, TabID: tabID, Fields: fields})
	}

	if recordVisit {
		if err := m.store.VisitHistory(visitAddress, visitTitle, time.Now()); err != nil {
			// History is bookkeeping, not part of the user action.
			m.log.Warn("record visit", zap.String("address", visitAddress), zap.Error(err))
		} else if m.metrics != nil {
			m.metrics.HistoryWrites.Inc()
		}
	}

	if probeAddress != "" {
		m.scheduleIconProbe(tabID, probeAddress)
	}

	if popupAddress != "" {
		// A page requested a new window; policy already decided this
		// address belongs in a tab rather than an external handler.
		if _, err := m.Create(ctx, popupAddress); err != nil {
			m.log.Warn("open popup tab", zap.String("address", popupAddress), zap.Error(err))
		}
	}
}
