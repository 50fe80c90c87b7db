package tabs

import (
	"context"

	"go.uber.org/zap"
)

// FindStart opens the tab's find bar and runs a first search. The bar
// state is per-tab and survives switching away and back.
func (m *Manager) FindStart(ctx context.Context, tabID, text string) bool {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	opened := !rec.findOpen
	rec.findOpen = true
	active := m.activeID == tabID
	layout := m.layout
	m.mu.Unlock()

	if opened && active {
		if err := rec.surface.SetBounds(ctx, layout.Width, layout.Height-layout.ChromeHeight-layout.FindBarHeight); err != nil {
			m.log.Warn("resize for find bar", zap.Error(err))
		}
	}
	if text != "" {
		if err := rec.surface.Find(ctx, text, true, false); err != nil {
			m.log.Info("find error", zap.String("tab", tabID), zap.Error(err))
		}
	}
	return true
}

// FindNext advances the search to the next or previous match.
func (m *Manager) FindNext(ctx context.Context, tabID, text string, forward bool) bool {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	m.mu.Unlock()
	if !ok || text == "" {
		return false
	}
	if err := rec.surface.Find(ctx, text, forward, true); err != nil {
		m.log.Info("find error", zap.String("tab", tabID), zap.Error(err))
	}
	return true
}

// FindStop closes the tab's find bar and clears highlighting. Stopping
// a search that is not running is a no-op, so double-stop across the
// async boundary is harmless.
func (m *Manager) FindStop(ctx context.Context, tabID string) bool {
	m.mu.Lock()
	rec, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	wasOpen := rec.findOpen
	rec.findOpen = false
	rec.findActive = false
	active := m.activeID == tabID
	layout := m.layout
	m.mu.Unlock()

	if !wasOpen {
		return true
	}
	if err := rec.surface.StopFind(ctx); err != nil {
		m.log.Debug("stop find", zap.String("tab", tabID), zap.Error(err))
	}
	if active {
		if err := rec.surface.SetBounds(ctx, layout.Width, layout.Height-layout.ChromeHeight); err != nil {
			m.log.Warn("resize after find bar", zap.Error(err))
		}
	}
	return true
}

// FindState reports whether the tab's find bar is open. The UI asks
// for this explicitly instead of the coordinator pushing it on a timer.
func (m *Manager) FindState(tabID string) (open bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tabs[tabID]
	if !ok {
		return false, false
	}
	return rec.findOpen, true
}
