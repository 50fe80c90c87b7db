package engine

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// internalReloadDelay is how long a failed internal-scheme load waits
// before its single automatic retry.
const internalReloadDelay = 400 * time.Millisecond

// Config holds engine process configuration.
type Config struct {
	ProfileDir   string // persistent partition for restricted surfaces
	DownloadDir  string
	WindowSize   string // "width,height"
	ChromeBinary string // empty = autodetect
	// RemoteDebugURL attaches to a running browser's DevTools endpoint
	// instead of launching an engine process. ProfileDir, WindowSize
	// and ChromeBinary only apply to the launched case.
	RemoteDebugURL string
}

// CDP drives an embedded Chromium over the DevTools protocol. It
// implements Factory and DownloadObserver.
type CDP struct {
	log *logging.Logger
	cfg Config

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc

	mu sync.Mutex
	// privilegedCtx is the ephemeral browser context shared by internal
	// pages; lazily created, destroyed with the browser.
	privilegedCtx cdp.BrowserContextID

	downloadSinks []DownloadSink
}

// NewCDP launches the engine process, or attaches to a running one
// when cfg.RemoteDebugURL is set.
func NewCDP(ctx context.Context, cfg Config, log *logging.Logger) (*CDP, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteDebugURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteDebugURL)
	} else {
		width, height := parseWindowSize(cfg.WindowSize)
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", false),
			chromedp.UserDataDir(cfg.ProfileDir),
			chromedp.WindowSize(width, height),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-breakpad", true),
		)
		if cfg.ChromeBinary != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ChromeBinary))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	e := &CDP{
		log:         log.Named("engine"),
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}

	// Start the browser and enable download events for the default
	// (restricted, persistent) partition. The privileged partition gets
	// the same treatment when it is first created.
	if err := chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(cfg.DownloadDir).
			WithEventsEnabled(true),
	); err != nil {
		allocCancel()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	chromedp.ListenBrowser(browserCtx, e.routeBrowserEvent)
	return e, nil
}

// ObserveDownloads registers a sink for host download signals from both
// storage partitions.
func (e *CDP) ObserveDownloads(sink DownloadSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.downloadSinks = append(e.downloadSinks, sink)
}

func (e *CDP) routeBrowserEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *browser.EventDownloadWillBegin:
		e.fanoutDownload(DownloadSignal{
			Kind:              DownloadBegin,
			GUID:              ev.GUID,
			URL:               ev.URL,
			SuggestedFilename: ev.SuggestedFilename,
		})
	case *browser.EventDownloadProgress:
		sig := DownloadSignal{
			GUID:     ev.GUID,
			Received: int64(ev.ReceivedBytes),
			Total:    int64(ev.TotalBytes),
			State:    ev.State.String(),
		}
		if ev.State == browser.DownloadProgressStateInProgress {
			sig.Kind = DownloadProgress
		} else {
			sig.Kind = DownloadDone
		}
		e.fanoutDownload(sig)
	}
}

func (e *CDP) fanoutDownload(sig DownloadSignal) {
	e.mu.Lock()
	sinks := append([]DownloadSink(nil), e.downloadSinks...)
	e.mu.Unlock()
	for _, sink := range sinks {
		sink(sig)
	}
}

// Create builds a surface for address. Internal addresses get a target
// inside the shared ephemeral privileged context; everything else gets
// a target in the default persistent context.
func (e *CDP) Create(ctx context.Context, address string, sink EventSink) (Surface, error) {
	profile := ProfileFor(address)

	var opts []chromedp.ContextOption
	if profile == ProfilePrivileged {
		bctx, err := e.privilegedContext(ctx)
		if err != nil {
			return nil, err
		}
		tid, err := target.CreateTarget("about:blank").WithBrowserContextID(bctx).Do(
			browserExecutor(e.browserCtx))
		if err != nil {
			return nil, fmt.Errorf("create privileged target: %w", err)
		}
		opts = append(opts, chromedp.WithTargetID(tid))
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx, opts...)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("create surface: %w", err)
	}

	s := &cdpSurface{
		engine:  e,
		ctx:     tabCtx,
		cancel:  cancel,
		profile: profile,
		sink:    sink,
		log:     e.log,
	}
	if tgt := chromedp.FromContext(tabCtx).Target; tgt != nil {
		s.targetID = tgt.TargetID
	}
	chromedp.ListenTarget(tabCtx, s.routeEvent)
	return s, nil
}

// Close shuts the engine down, destroying every surface with it.
func (e *CDP) Close(ctx context.Context) error {
	e.browserStop()
	e.allocCancel()
	return nil
}

func (e *CDP) privilegedContext(ctx context.Context) (cdp.BrowserContextID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.privilegedCtx != "" {
		return e.privilegedCtx, nil
	}
	bctx, err := target.CreateBrowserContext().Do(browserExecutor(e.browserCtx))
	if err != nil {
		return "", fmt.Errorf("create privileged browser context: %w", err)
	}
	// Downloads can originate from internal pages too.
	if err := browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(e.cfg.DownloadDir).
		WithBrowserContextID(bctx).
		WithEventsEnabled(true).
		Do(browserExecutor(e.browserCtx)); err != nil {
		return "", fmt.Errorf("enable privileged downloads: %w", err)
	}
	e.privilegedCtx = bctx
	return bctx, nil
}

// cdpSurface is a CDP-backed content surface: one engine target.
type cdpSurface struct {
	engine   *CDP
	ctx      context.Context
	cancel   context.CancelFunc
	targetID target.ID
	profile  Profile
	sink     EventSink
	log      *logging.Logger

	mu            sync.Mutex
	address       string
	retriedLoad   bool
	activeOrdinal int
}

func (s *cdpSurface) ID() string       { return string(s.targetID) }
func (s *cdpSurface) Profile() Profile { return s.profile }

func (s *cdpSurface) Load(ctx context.Context, address string) error {
	s.mu.Lock()
	s.address = address
	s.retriedLoad = false
	s.mu.Unlock()
	go s.navigate(address, true)
	return nil
}

// navigate runs asynchronously: navigation completion and failure are
// reported through the event sink, not a return value.
func (s *cdpSurface) navigate(address string, allowRetry bool) {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(address)); err != nil {
		if isSupersession(err) {
			// Expected when a newer navigation replaced this one.
			s.log.Debug("navigation superseded", zap.String("address", address))
			return
		}
		s.sink(types.SurfaceEvent{Kind: types.EventLoadFailed, Address: address, Reason: err.Error()})

		// Internal pages get exactly one delayed automatic retry;
		// external failures are never auto-retried.
		s.mu.Lock()
		retry := allowRetry && !s.retriedLoad && navigation.IsInternal(address)
		if retry {
			s.retriedLoad = true
		}
		s.mu.Unlock()
		if retry {
			time.AfterFunc(internalReloadDelay, func() { s.navigate(address, false) })
		}
	}
}

func (s *cdpSurface) Back(ctx context.Context) error {
	return chromedp.Run(s.ctx, chromedp.NavigateBack())
}

func (s *cdpSurface) Forward(ctx context.Context) error {
	return chromedp.Run(s.ctx, chromedp.NavigateForward())
}

func (s *cdpSurface) Reload(ctx context.Context) error {
	return chromedp.Run(s.ctx, chromedp.Reload())
}

func (s *cdpSurface) Show(ctx context.Context) error {
	return chromedp.Run(s.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive).Do(ctx); err != nil {
				return err
			}
			return page.BringToFront().Do(ctx)
		}))
}

func (s *cdpSurface) Hide(ctx context.Context) error {
	return chromedp.Run(s.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetWebLifecycleState(page.SetWebLifecycleStateStateFrozen).Do(ctx)
		}))
}

func (s *cdpSurface) SetBounds(ctx context.Context, width, height int) error {
	return chromedp.Run(s.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			windowID, _, err := browser.GetWindowForTarget().WithTargetID(s.targetID).Do(ctx)
			if err != nil {
				return err
			}
			return browser.SetWindowBounds(windowID, &browser.Bounds{
				Width:  int64(width),
				Height: int64(height),
			}).Do(ctx)
		}))
}

// findScript wraps window.find and reports a match count so the shell
// can show "n of m". Highlighting is the engine's native selection.
const findScript = `(() => {
	const text = %s, forward = %t, next = %t;
	if (!next) { window.getSelection().removeAllRanges(); }
	const found = window.find(text, false, !forward, true, false, true, false);
	const body = document.body ? document.body.innerText : "";
	const count = text.length ? body.toLowerCase().split(text.toLowerCase()).length - 1 : 0;
	return {found: found, count: count};
})()`

func (s *cdpSurface) Find(ctx context.Context, text string, forward, next bool) error {
	var res struct {
		Found bool `json:"found"`
		Count int  `json:"count"`
	}
	script := fmt.Sprintf(findScript, strconv.Quote(text), forward, next)
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &res)); err != nil {
		return fmt.Errorf("find: %w", err)
	}

	s.mu.Lock()
	if !next || !res.Found {
		s.activeOrdinal = 0
	}
	if res.Found {
		s.activeOrdinal++
		if s.activeOrdinal > res.Count {
			s.activeOrdinal = 1
		}
	}
	ordinal := s.activeOrdinal
	s.mu.Unlock()

	s.sink(types.SurfaceEvent{Kind: types.EventSearchResult, Matches: res.Count, ActiveMatch: ordinal})
	return nil
}

func (s *cdpSurface) StopFind(ctx context.Context) error {
	s.mu.Lock()
	s.activeOrdinal = 0
	s.mu.Unlock()
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.getSelection().removeAllRanges()`, nil))
	if err != nil {
		return fmt.Errorf("stop find: %w", err)
	}
	return nil
}

func (s *cdpSurface) PushDownloads(ctx context.Context, payload []byte) error {
	script := fmt.Sprintf(
		`window.dispatchEvent(new CustomEvent("lumen:downloads", {detail: %s}))`, payload)
	return chromedp.Run(s.ctx, chromedp.Evaluate(script, nil))
}

func (s *cdpSurface) Close(ctx context.Context) error {
	s.cancel()
	return nil
}

// routeEvent translates raw protocol events into the closed surface
// event set.
func (s *cdpSurface) routeEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventFrameStartedLoading:
		s.sink(types.SurfaceEvent{Kind: types.EventLoadStarted})
	case *page.EventFrameStoppedLoading:
		s.sink(types.SurfaceEvent{Kind: types.EventLoadStopped})
	case *page.EventFrameNavigated:
		if ev.Frame.ParentID == "" {
			s.mu.Lock()
			s.address = ev.Frame.URL
			s.mu.Unlock()
			s.sink(types.SurfaceEvent{Kind: types.EventNavigated, Address: ev.Frame.URL})
		}
	case *page.EventNavigatedWithinDocument:
		s.mu.Lock()
		s.address = ev.URL
		s.mu.Unlock()
		s.sink(types.SurfaceEvent{Kind: types.EventNavigated, Address: ev.URL, SameDocument: true})
	case *page.EventWindowOpen:
		s.handleWindowOpen(ev.URL)
	case *target.EventTargetInfoChanged:
		if ev.TargetInfo.TargetID == s.targetID {
			s.sink(types.SurfaceEvent{Kind: types.EventTitleChanged, Title: ev.TargetInfo.Title})
		}
	}
}

// handleWindowOpen intercepts attempts to open a new top-level browsing
// context. Internal and http(s) targets become new-tab requests; other
// URI schemes are handed to the OS default handler — except internal
// ones, which must never reach the OS to avoid scheme confusion.
func (s *cdpSurface) handleWindowOpen(url string) {
	if url == "" {
		url = navigation.NewTabAddress
	}
	lower := strings.ToLower(url)
	switch {
	case navigation.IsInternal(url),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"):
		s.sink(types.SurfaceEvent{Kind: types.EventPopupRequested, Address: url})
	default:
		if err := openWithOS(url); err != nil {
			s.log.Warn("OS handler delegation failed", zap.String("url", url), zap.Error(err))
		}
	}
}

func openWithOS(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// isSupersession reports whether a navigation error just means a newer
// navigation replaced this one (last-write-wins, informational only).
func isSupersession(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "net::ERR_ABORTED") || strings.Contains(msg, "context canceled")
}

func parseWindowSize(size string) (int, int) {
	parts := strings.SplitN(size, ",", 2)
	if len(parts) == 2 {
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1280, 800
}

// browserExecutor adapts the browser-level session for direct cdproto
// calls outside a chromedp.Run.
func browserExecutor(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Browser)
}
