package tabs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrowser/lumen/internal/engine/enginetest"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

func TestSessionRoundTrip(t *testing.T) {
	m, _, st, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "https://a.example")
	require.NoError(t, err)
	b, err := m.Create(ctx, "https://b.example")
	require.NoError(t, err)
	_, err = m.Create(ctx, "https://c.example")
	require.NoError(t, err)
	m.Activate(ctx, b.ID)

	require.NoError(t, m.SaveSession())

	// A fresh coordinator over the same store stands in for a restart.
	notifier := &recordingNotifier{}
	restored := NewManager(enginetest.New(), st, notifier, logging.NewNop())
	restored.iconSettleDelay = time.Hour
	require.NoError(t, restored.RestoreSession(ctx))

	tabs := restored.List()
	require.Len(t, tabs, 3)
	assert.Equal(t, "https://a.example", tabs[0].Address)
	assert.Equal(t, "https://b.example", tabs[1].Address)
	assert.Equal(t, "https://c.example", tabs[2].Address)

	// Identifiers are minted fresh; activation follows position.
	assert.NotEqual(t, b.ID, tabs[1].ID)
	assert.Equal(t, tabs[1].ID, restored.ActiveID())

	// The previously active tab's activation is the last one the UI
	// sees, after every tab exists.
	activations := notifier.ofType(types.UITabActivated)
	require.NotEmpty(t, activations)
	assert.Equal(t, tabs[1].ID, activations[len(activations)-1].TabID)

	assert.Len(t, notifier.ofType(types.UISessionRestored), 1)
}

func TestRestoreEmptySessionCreatesDefaultTab(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.RestoreSession(ctx))

	tabs := m.List()
	require.Len(t, tabs, 1)
	assert.Equal(t, navigation.NewTabAddress, tabs[0].Address)
	assert.Equal(t, tabs[0].ID, m.ActiveID())
}

func TestRestoreUnreadableStoreDegrades(t *testing.T) {
	m, _, st, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, st.Close())
	require.NoError(t, m.RestoreSession(ctx))

	tabs := m.List()
	require.Len(t, tabs, 1)
	assert.Equal(t, navigation.NewTabAddress, tabs[0].Address)
}

func TestSaveSessionAtomicReplace(t *testing.T) {
	m, _, st, _ := newTestManager(t)
	ctx := context.Background()

	a, err := m.Create(ctx, "https://a.example")
	require.NoError(t, err)
	_, err = m.Create(ctx, "https://b.example")
	require.NoError(t, err)
	require.NoError(t, m.SaveSession())

	_, err = m.Close(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, m.SaveSession())

	snaps, err := st.LoadTabSet()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "https://b.example", snaps[0].Address)
	assert.Equal(t, 0, snaps[0].Position)
}

func TestShutdownSavesAndClosesSurfaces(t *testing.T) {
	m, factory, st, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, "https://a.example")
	require.NoError(t, err)
	_, err = m.Create(ctx, "https://b.example")
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(ctx))

	snaps, err := st.LoadTabSet()
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
	for _, s := range factory.Surfaces() {
		assert.True(t, s.Closed)
	}
}
