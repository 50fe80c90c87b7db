// Package enginetest provides an in-memory content engine for tests:
// surfaces record the calls made against them and expose Emit so tests
// can drive lifecycle events without a browser process.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumenbrowser/lumen/internal/engine"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// Factory is an in-memory engine.Factory and engine.DownloadObserver.
type Factory struct {
	mu       sync.Mutex
	next     int
	surfaces []*Surface
	sinks    []engine.DownloadSink

	// FailCreate makes the next Create call fail.
	FailCreate bool
}

// New creates a fake factory.
func New() *Factory {
	return &Factory{}
}

// Create builds a recording surface.
func (f *Factory) Create(ctx context.Context, address string, sink engine.EventSink) (engine.Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		f.FailCreate = false
		return nil, fmt.Errorf("enginetest: create failed")
	}
	f.next++
	s := &Surface{
		id:      fmt.Sprintf("surface-%d", f.next),
		profile: engine.ProfileFor(address),
		sink:    sink,
	}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

// Close marks every surface closed.
func (f *Factory) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.surfaces {
		s.mu.Lock()
		s.Closed = true
		s.mu.Unlock()
	}
	return nil
}

// ObserveDownloads registers a download sink.
func (f *Factory) ObserveDownloads(sink engine.DownloadSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
}

// EmitDownload fans a download signal out to registered sinks.
func (f *Factory) EmitDownload(sig engine.DownloadSignal) {
	f.mu.Lock()
	sinks := append([]engine.DownloadSink(nil), f.sinks...)
	f.mu.Unlock()
	for _, sink := range sinks {
		sink(sig)
	}
}

// Surfaces returns every surface created so far.
func (f *Factory) Surfaces() []*Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Surface(nil), f.surfaces...)
}

// Surface records calls and lets tests emit events.
type Surface struct {
	id      string
	profile engine.Profile
	sink    engine.EventSink

	mu            sync.Mutex
	LoadedAddress string
	Visible       bool
	Closed        bool
	FindCalls     int
	StopFindCalls int
	Highlighted   bool
	Width, Height int
	Pushed        [][]byte
	BackCalls     int
	ForwardCalls  int
	ReloadCalls   int
}

func (s *Surface) ID() string              { return s.id }
func (s *Surface) Profile() engine.Profile { return s.profile }

func (s *Surface) Load(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LoadedAddress = address
	return nil
}

func (s *Surface) Back(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BackCalls++
	return nil
}

func (s *Surface) Forward(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ForwardCalls++
	return nil
}

func (s *Surface) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReloadCalls++
	return nil
}

func (s *Surface) Show(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Visible = true
	return nil
}

func (s *Surface) Hide(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Visible = false
	return nil
}

func (s *Surface) SetBounds(ctx context.Context, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Width, s.Height = width, height
	return nil
}

func (s *Surface) Find(ctx context.Context, text string, forward, next bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls++
	s.Highlighted = true
	return nil
}

func (s *Surface) StopFind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopFindCalls++
	s.Highlighted = false
	return nil
}

func (s *Surface) PushDownloads(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pushed = append(s.Pushed, payload)
	return nil
}

func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Emit delivers a surface event to the registered sink.
func (s *Surface) Emit(ev types.SurfaceEvent) {
	s.sink(ev)
}
