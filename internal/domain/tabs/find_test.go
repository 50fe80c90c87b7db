package tabs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrowser/lumen/internal/shared/types"
)

func TestFindBarStateSurvivesSwitching(t *testing.T) {
	m, _, _, notifier := newTestManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, "https://a.example")
	require.NoError(t, err)
	b, err := m.Create(ctx, "https://b.example")
	require.NoError(t, err)

	m.Activate(ctx, a.ID)
	require.True(t, m.FindStart(ctx, a.ID, "needle"))

	open, ok := m.FindState(a.ID)
	require.True(t, ok)
	assert.True(t, open)

	// Switching away keeps a's bar state; b never opened one.
	m.Activate(ctx, b.ID)
	open, _ = m.FindState(a.ID)
	assert.True(t, open)
	open, _ = m.FindState(b.ID)
	assert.False(t, open)

	notifier.reset()
	m.Activate(ctx, a.ID)
	restored := notifier.ofType(types.UIFindStateRestore)
	require.Len(t, restored, 1)
	require.NotNil(t, restored[0].FindOpen)
	assert.True(t, *restored[0].FindOpen)
}

func TestSwitchingStopsSearchOnOutgoingTab(t *testing.T) {
	m, factory, _, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, "https://a.example")
	require.NoError(t, err)
	b, err := m.Create(ctx, "https://b.example")
	require.NoError(t, err)

	m.Activate(ctx, a.ID)
	m.FindStart(ctx, a.ID, "needle")

	surfaces := factory.Surfaces()
	before := surfaces[0].StopFindCalls
	m.Activate(ctx, b.ID)

	assert.Greater(t, surfaces[0].StopFindCalls, before)
}

func TestFindStopIdempotent(t *testing.T) {
	m, factory, _, _ := newTestManager(t)
	ctx := context.Background()

	tab, err := m.Create(ctx, "https://example.com")
	require.NoError(t, err)

	m.FindStart(ctx, tab.ID, "needle")
	require.True(t, m.FindStop(ctx, tab.ID))
	require.True(t, m.FindStop(ctx, tab.ID))

	// The surface is only told to stop once; the second stop was a
	// coordinator-level no-op.
	assert.Equal(t, 1, factory.Surfaces()[0].StopFindCalls)

	open, ok := m.FindState(tab.ID)
	require.True(t, ok)
	assert.False(t, open)
}

func TestFindNextRequiresText(t *testing.T) {
	m, factory, _, _ := newTestManager(t)
	ctx := context.Background()

	tab, err := m.Create(ctx, "https://example.com")
	require.NoError(t, err)

	assert.False(t, m.FindNext(ctx, tab.ID, "", true))
	assert.True(t, m.FindNext(ctx, tab.ID, "needle", true))
	assert.Equal(t, 1, factory.Surfaces()[0].FindCalls)
}

func TestSearchResultEvent(t *testing.T) {
	m, _, _, notifier := newTestManager(t)
	ctx := context.Background()

	tab, err := m.Create(ctx, "https://example.com")
	require.NoError(t, err)
	notifier.reset()

	m.Dispatch(ctx, tab.ID, types.SurfaceEvent{Kind: types.EventSearchResult, Matches: 4, ActiveMatch: 2})

	results := notifier.ofType(types.UIFindResult)
	require.Len(t, results, 1)
	assert.Equal(t, tab.ID, results[0].TabID)
	assert.Equal(t, 4, results[0].Fields["matches"])
	assert.Equal(t, 2, results[0].Fields["active_match"])
}

func TestFindUnknownTab(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.False(t, m.FindStart(ctx, "tab_gone", "x"))
	assert.False(t, m.FindStop(ctx, "tab_gone"))
	_, ok := m.FindState("tab_gone")
	assert.False(t, ok)
}
