package tabs

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// Snapshot captures the tab set in creation order. The copies carry no
// live state: loading flags and find state are presentation-only and
// are not part of a session.
func (m *Manager) Snapshot() []types.TabSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := make([]types.TabSnapshot, 0, len(m.order))
	for pos, tid := range m.order {
		rec := m.tabs[tid]
		snaps = append(snaps, types.TabSnapshot{
			ID:       tid,
			Address:  rec.tab.Address,
			Title:    rec.tab.Title,
			Icon:     rec.tab.Icon,
			Position: pos,
			Active:   tid == m.activeID,
		})
	}
	return snaps
}

// SaveSession replaces the persisted tab set with the current one in a
// single atomic write, so a crash can never leave a half-written
// session behind.
func (m *Manager) SaveSession() error {
	snaps := m.Snapshot()
	if err := m.store.ReplaceTabSet(snaps); err != nil {
		if m.metrics != nil {
			m.metrics.StoreErrors.WithLabelValues("session").Inc()
		}
		return err
	}
	m.log.Debug("session saved", zap.Int("tabs", len(snaps)))
	if m.metrics != nil {
		m.metrics.SessionSaves.Inc()
	}
	return nil
}

// RestoreSession rebuilds the tab set from the last saved session.
// Tabs are recreated in saved order with fresh identifiers; the
// previously active tab is activated once all tabs exist, so its
// TabActivated notification is the last one the UI sees. An empty,
// missing or unreadable session degrades to a single default tab.
func (m *Manager) RestoreSession(ctx context.Context) error {
	snaps, err := m.store.LoadTabSet()
	if err != nil {
		m.log.Warn("load saved session", zap.Error(err))
		snaps = nil
	}

	if len(snaps) == 0 {
		_, err := m.Create(ctx, "")
		return err
	}

	activeID := ""
	for _, snap := range snaps {
		title := snap.Title
		if title == "" {
			title = navigation.DefaultTitle(snap.Address)
		}
		tab, err := m.create(ctx, snap.Address, title, snap.Icon)
		if err != nil {
			m.log.Warn("restore tab", zap.String("address", snap.Address), zap.Error(err))
			continue
		}
		if snap.Active {
			activeID = tab.ID
		}
	}

	// Surface creation can fail for every snapshot; the invariant that
	// a running coordinator always has at least one tab still holds.
	if len(m.List()) == 0 {
		_, err := m.Create(ctx, "")
		return err
	}

	if activeID != "" {
		m.Activate(ctx, activeID)
	}

	m.publish(types.UIEvent{Type: types.UISessionRestored, Fields: map[string]any{"tabs": len(m.List())}})
	return nil
}
