package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s, err := OpenInMemory(logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Every operation after Close fails loudly, never silently no-ops.
	_, err = s.LoadTabSet()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, s.VisitHistory("https://a.test/", "A", time.Now()), ErrNotOpen)
	assert.ErrorIs(t, s.SetSetting("k", "v"), ErrNotOpen)
	assert.ErrorIs(t, s.ReplaceTabSet(nil), ErrNotOpen)
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	// Re-running migrations against an already-migrated database must
	// not error and must not destroy rows.
	require.NoError(t, s.SetSetting("ui.theme", "dark"))
	require.NoError(t, s.migrate())

	v, err := s.GetSetting("ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestHistoryDedup(t *testing.T) {
	s := newTestStore(t)

	t1 := time.UnixMilli(1000)
	t2 := time.UnixMilli(2000)
	t3 := time.UnixMilli(3000)
	require.NoError(t, s.VisitHistory("https://a.test/", "A", t1))
	require.NoError(t, s.VisitHistory("https://a.test/", "A again", t2))
	require.NoError(t, s.VisitHistory("https://a.test/", "A final", t3))

	entries, err := s.RecentHistory(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://a.test/", entries[0].Address)
	assert.Equal(t, "A final", entries[0].Title)
	assert.Equal(t, 3, entries[0].VisitCount)
	assert.Equal(t, t3.UnixMilli(), entries[0].Timestamp.UnixMilli())
}

func TestHistorySearchAndClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.VisitHistory("https://golang.org/", "The Go Programming Language", time.Now()))
	require.NoError(t, s.VisitHistory("https://example.com/", "Example", time.Now()))

	hits, err := s.SearchHistory("golang", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, s.ClearHistory())
	entries, err := s.RecentHistory(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBookmarkSiblingPositions(t *testing.T) {
	s := newTestStore(t)

	addr := func(v string) *string { return &v }
	b1, err := s.AddBookmark(addr("https://a.test/"), "A", nil, nil)
	require.NoError(t, err)
	b2, err := s.AddBookmark(addr("https://b.test/"), "B", nil, nil)
	require.NoError(t, err)
	// Separator: nil address is a valid row.
	sep, err := s.AddBookmark(nil, "", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, b1.Position)
	assert.Equal(t, 1, b2.Position)
	assert.Equal(t, 2, sep.Position)

	f, err := s.AddFolder("work", nil)
	require.NoError(t, err)
	// Positions restart per sibling group.
	b3, err := s.AddBookmark(addr("https://c.test/"), "C", nil, &f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b3.Position)

	// Deleting the middle root bookmark keeps positions contiguous.
	require.NoError(t, s.DeleteBookmark(b2.ID))
	root, err := s.ListBookmarks(nil)
	require.NoError(t, err)
	require.Len(t, root, 2)
	for i, b := range root {
		assert.Equal(t, i, b.Position)
	}
}

func TestMoveBookmark(t *testing.T) {
	s := newTestStore(t)
	addr := func(v string) *string { return &v }

	b1, err := s.AddBookmark(addr("https://a.test/"), "A", nil, nil)
	require.NoError(t, err)
	b2, err := s.AddBookmark(addr("https://b.test/"), "B", nil, nil)
	require.NoError(t, err)
	f, err := s.AddFolder("work", nil)
	require.NoError(t, err)

	require.NoError(t, s.MoveBookmark(b1.ID, &f.ID))

	inFolder, err := s.ListBookmarks(&f.ID)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, 0, inFolder[0].Position)

	root, err := s.ListBookmarks(nil)
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, b2.ID, root[0].ID)
	assert.Equal(t, 0, root[0].Position)
}

func TestDeleteFolderReparents(t *testing.T) {
	s := newTestStore(t)
	addr := func(v string) *string { return &v }

	parent, err := s.AddFolder("parent", nil)
	require.NoError(t, err)
	child, err := s.AddFolder("child", &parent.ID)
	require.NoError(t, err)
	_, err = s.AddBookmark(addr("https://a.test/"), "A", nil, &parent.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(parent.ID))

	roots, err := s.ListFolders(nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, child.ID, roots[0].ID)

	// The contained bookmark moved to the root group.
	root, err := s.ListBookmarks(nil)
	require.NoError(t, err)
	require.Len(t, root, 1)
}

func TestDownloadRawStatePersisted(t *testing.T) {
	s := newTestStore(t)

	d := &types.Download{
		ID:         "dl_test1",
		Filename:   "big.iso",
		SavePath:   "/tmp/big.iso",
		TotalBytes: 100,
		State:      types.DownloadInProgress,
		Timestamp:  time.Now(),
	}
	require.NoError(t, s.InsertDownload(d))

	// The host reports "cancelled" even though all 100 bytes arrived.
	// The raw state is persisted unmodified; reinterpretation belongs
	// in presentation, not persistence. The terminal write alone must
	// land the final byte counts — no progress tick preceded it.
	require.NoError(t, s.FinishDownload(d.ID, types.DownloadCancelled, "application/octet-stream", 100, 100))

	list, err := s.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.DownloadCancelled, list[0].State)
	assert.Equal(t, int64(100), list[0].ReceivedBytes)
	assert.Equal(t, int64(100), list[0].TotalBytes)
}

func TestClearFinishedDownloads(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	require.NoError(t, s.InsertDownload(&types.Download{ID: "dl_a", Filename: "a", State: types.DownloadInProgress, Timestamp: now}))
	require.NoError(t, s.InsertDownload(&types.Download{ID: "dl_b", Filename: "b", State: types.DownloadCompleted, Timestamp: now}))
	require.NoError(t, s.InsertDownload(&types.Download{ID: "dl_c", Filename: "c", State: types.DownloadFailed, Timestamp: now}))

	require.NoError(t, s.ClearFinishedDownloads())
	list, err := s.ListDownloads(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "dl_a", list[0].ID)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSetting("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetSetting("search.engine", "https://s.test/?q=%s"))
	require.NoError(t, s.SetSetting("search.engine", "https://s2.test/?q=%s"))

	v, err := s.GetSetting("search.engine")
	require.NoError(t, err)
	assert.Equal(t, "https://s2.test/?q=%s", v)

	all, err := s.AllSettings()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteSetting("search.engine"))
	_, err = s.GetSetting("search.engine")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTabSetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	set := []types.TabSnapshot{
		{ID: "tab_a", Address: "https://a.test/", Title: "A", Position: 0},
		{ID: "tab_b", Address: "https://b.test/", Title: "B", Icon: "https://b.test/favicon.ico", Position: 1, Active: true},
		{ID: "tab_c", Address: "lumen://newtab", Title: "New Tab", Position: 2},
	}
	require.NoError(t, s.ReplaceTabSet(set))

	got, err := s.LoadTabSet()
	require.NoError(t, err)
	require.Len(t, got, 3)

	activeCount := 0
	for i, snap := range got {
		assert.Equal(t, set[i].ID, snap.ID)
		assert.Equal(t, set[i].Address, snap.Address)
		assert.Equal(t, set[i].Title, snap.Title)
		assert.Equal(t, i, snap.Position)
		if snap.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	// Replace-all semantics: a second save overwrites the first.
	require.NoError(t, s.ReplaceTabSet(set[:1]))
	got, err = s.LoadTabSet()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
