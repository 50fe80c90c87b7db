package downloads

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrowser/lumen/internal/engine"
	"github.com/lumenbrowser/lumen/internal/engine/enginetest"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/shared/types"
	"github.com/lumenbrowser/lumen/internal/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.UIEvent
}

func (n *recordingNotifier) Publish(ev types.UIEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []types.UIEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]types.UIEvent(nil), n.events...)
}

type recordingPusher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPusher) PushDownloadsToAll(ctx context.Context, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func newTestTracker(t *testing.T) (*Tracker, *enginetest.Factory, *store.Store, *recordingNotifier, *recordingPusher) {
	t.Helper()
	st, err := store.OpenInMemory(logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	factory := enginetest.New()
	notifier := &recordingNotifier{}
	pusher := &recordingPusher{}
	tracker := NewTracker(factory, st, pusher, notifier, t.TempDir(), logging.NewNop())
	return tracker, factory, st, notifier, pusher
}

func TestDownloadLifecyclePersisted(t *testing.T) {
	_, factory, st, notifier, pusher := newTestTracker(t)

	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadBegin, GUID: "g1",
		URL: "https://example.com/report.pdf", SuggestedFilename: "report.pdf", Total: 1000,
	})
	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadProgress, GUID: "g1", Received: 500, Total: 1000,
	})
	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadDone, GUID: "g1", Received: 1000, Total: 1000, State: "completed",
	})

	list, err := st.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "report.pdf", list[0].Filename)
	assert.Equal(t, types.DownloadCompleted, list[0].State)
	assert.Equal(t, int64(1000), list[0].ReceivedBytes)

	// One UI event per signal, and one in-page push each.
	assert.Len(t, notifier.all(), 3)
	assert.Equal(t, 3, pusher.count())
}

func TestCancelledAtFullProgressStaysCancelled(t *testing.T) {
	_, factory, st, _, _ := newTestTracker(t)

	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadBegin, GUID: "g1",
		URL: "https://example.com/big.iso", SuggestedFilename: "big.iso", Total: 4096,
	})
	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadDone, GUID: "g1", Received: 4096, Total: 4096, State: "canceled",
	})

	list, err := st.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	// Full byte count does not upgrade the host's verdict.
	assert.Equal(t, types.DownloadCancelled, list[0].State)
	assert.Equal(t, int64(4096), list[0].ReceivedBytes)
}

func TestUnknownTerminalStateIsFailure(t *testing.T) {
	_, factory, st, _, _ := newTestTracker(t)

	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadBegin, GUID: "g1", URL: "https://example.com/x",
	})
	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadDone, GUID: "g1", State: "interrupted",
	})

	list, err := st.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.DownloadFailed, list[0].State)
}

func TestProgressForUnknownGUIDDropped(t *testing.T) {
	_, factory, st, notifier, _ := newTestTracker(t)

	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadProgress, GUID: "never-began", Received: 10,
	})

	list, err := st.ListDownloads(10)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, notifier.all())
}

func TestMimeTypeDetectedOnCompletion(t *testing.T) {
	tracker, factory, st, _, _ := newTestTracker(t)

	// Drop a real file where the tracker expects the download to land.
	name := "page.html"
	require.NoError(t, os.WriteFile(filepath.Join(tracker.saveDir, name), []byte("<html><body>hi</body></html>"), 0o644))

	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadBegin, GUID: "g1",
		URL: "https://example.com/page.html", SuggestedFilename: name,
	})
	factory.EmitDownload(engine.DownloadSignal{
		Kind: engine.DownloadDone, GUID: "g1", State: "completed",
	})

	list, err := st.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].MimeType, "text/html")
}

func TestFilenameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/files/data.zip", "data.zip"},
		{"https://example.com/", "download"},
		{"https://example.com", "download"},
		{"::::", "download"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, filenameFromURL(tt.url), tt.url)
	}
}
