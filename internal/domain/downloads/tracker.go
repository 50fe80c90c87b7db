// Package downloads tracks host-level download activity and persists
// it, so closing the downloads view never loses a transfer record.
package downloads

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/engine"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/shared/id"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// Store is the slice of the persistence gateway the tracker needs.
type Store interface {
	InsertDownload(*types.Download) error
	UpdateDownloadProgress(downloadID string, received, total int64) error
	FinishDownload(downloadID string, state types.DownloadState, mimeType string, received, total int64) error
	ListDownloads(limit int) ([]types.Download, error)
}

// TabPusher delivers a downloads payload into every open tab.
type TabPusher interface {
	PushDownloadsToAll(ctx context.Context, payload []byte)
}

// listLimit bounds the payload pushed into pages.
const listLimit = 50

// Tracker observes download signals from the engine, assigns each
// transfer an application identifier, and mirrors every state change
// to the store, the UI stream, and open tabs.
type Tracker struct {
	mu     sync.Mutex
	byGUID map[string]*types.Download

	store    Store
	tabs     TabPusher
	notifier types.Notifier
	metrics  *monitoring.Metrics
	log      *logging.Logger
	saveDir  string
}

// NewTracker creates a tracker and registers it with the observer.
func NewTracker(observer engine.DownloadObserver, st Store, tabs TabPusher, notifier types.Notifier, saveDir string, log *logging.Logger) *Tracker {
	t := &Tracker{
		byGUID:   make(map[string]*types.Download),
		store:    st,
		tabs:     tabs,
		notifier: notifier,
		log:      log.Named("downloads"),
		saveDir:  saveDir,
	}
	observer.ObserveDownloads(t.Handle)
	return t
}

// WithMetrics adds metrics tracking to the tracker.
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// Handle ingests one download signal. Signals for unknown engine GUIDs
// after begin are dropped; the engine can emit progress for transfers
// started before we attached.
func (t *Tracker) Handle(sig engine.DownloadSignal) {
	switch sig.Kind {
	case engine.DownloadBegin:
		t.begin(sig)
	case engine.DownloadProgress:
		t.progress(sig)
	case engine.DownloadDone:
		t.done(sig)
	}
}

func (t *Tracker) begin(sig engine.DownloadSignal) {
	filename := sig.SuggestedFilename
	if filename == "" {
		filename = filenameFromURL(sig.URL)
	}

	d := &types.Download{
		ID:         id.NewDownloadID(),
		Filename:   filename,
		SavePath:   filepath.Join(t.saveDir, filename),
		TotalBytes: sig.Total,
		State:      types.DownloadInProgress,
		Timestamp:  time.Now(),
	}

	t.mu.Lock()
	t.byGUID[sig.GUID] = d
	t.mu.Unlock()

	if err := t.store.InsertDownload(d); err != nil {
		t.log.Warn("persist download start", zap.String("id", d.ID), zap.Error(err))
	}
	t.log.Info("download started", zap.String("id", d.ID), zap.String("filename", filename))
	t.broadcast(d)
}

func (t *Tracker) progress(sig engine.DownloadSignal) {
	t.mu.Lock()
	d, ok := t.byGUID[sig.GUID]
	if !ok {
		t.mu.Unlock()
		return
	}
	d.ReceivedBytes = sig.Received
	d.TotalBytes = sig.Total
	t.mu.Unlock()

	if err := t.store.UpdateDownloadProgress(d.ID, sig.Received, sig.Total); err != nil {
		t.log.Warn("persist download progress", zap.String("id", d.ID), zap.Error(err))
	}
	t.broadcast(d)
}

func (t *Tracker) done(sig engine.DownloadSignal) {
	t.mu.Lock()
	d, ok := t.byGUID[sig.GUID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.byGUID, sig.GUID)

	// The terminal state is recorded exactly as the host reported it.
	// A cancelled transfer at 100% received stays cancelled; progress
	// never overrides the verdict.
	d.State = terminalState(sig.State)
	d.ReceivedBytes = sig.Received
	if sig.Total > 0 {
		d.TotalBytes = sig.Total
	}
	t.mu.Unlock()

	mime := ""
	if d.State == types.DownloadCompleted {
		if detected, err := mimetype.DetectFile(d.SavePath); err == nil {
			mime = detected.String()
			d.MimeType = mime
		}
	}

	if err := t.store.FinishDownload(d.ID, d.State, mime, d.ReceivedBytes, d.TotalBytes); err != nil {
		t.log.Warn("persist download finish", zap.String("id", d.ID), zap.Error(err))
	}
	if t.metrics != nil {
		t.metrics.DownloadsByState.WithLabelValues(string(d.State)).Inc()
	}
	t.log.Info("download finished",
		zap.String("id", d.ID),
		zap.String("state", string(d.State)),
		zap.Int64("bytes", d.ReceivedBytes))
	t.broadcast(d)
}

// List returns recent downloads, newest first.
func (t *Tracker) List() ([]types.Download, error) {
	return t.store.ListDownloads(listLimit)
}

// broadcast pushes the change to the UI stream and the full list into
// every open tab, so in-page downloads views track live progress.
func (t *Tracker) broadcast(d *types.Download) {
	if t.notifier != nil {
		dc := *d
		t.notifier.Publish(types.UIEvent{
			Type:      types.UIDownloadUpdated,
			Download:  &dc,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	if t.tabs == nil {
		return
	}
	list, err := t.List()
	if err != nil {
		t.log.Warn("list downloads for push", zap.Error(err))
		return
	}
	payload, err := sonic.Marshal(list)
	if err != nil {
		t.log.Warn("encode downloads payload", zap.Error(err))
		return
	}
	t.tabs.PushDownloadsToAll(context.Background(), payload)
}

// terminalState maps the host's raw terminal string onto the stored
// state set. Unknown strings are treated as failures rather than
// guessed at.
func terminalState(raw string) types.DownloadState {
	switch raw {
	case "completed":
		return types.DownloadCompleted
	case "canceled", "cancelled":
		return types.DownloadCancelled
	default:
		return types.DownloadFailed
	}
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "download"
	}
	return name
}
