// Package engine abstracts the embedded content engine: it constructs
// isolated content surfaces for tabs and reports their lifecycle events
// back to the owner through a closed event set.
//
// The production implementation drives a Chromium process over the
// DevTools protocol; tests substitute the in-memory fake from
// enginetest.
package engine

import (
	"context"

	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/shared/types"
)

// Profile is the capability set granted to a content surface.
type Profile string

const (
	// ProfilePrivileged surfaces render internal pages: full access to
	// app-level commands, no persistent storage partition.
	ProfilePrivileged Profile = "privileged"
	// ProfileRestricted surfaces render the open web: no privileged
	// command access, shared persistent storage partition so external
	// sites keep logins across tabs and restarts.
	ProfileRestricted Profile = "restricted"
)

// ProfileFor selects the isolation profile for an address. This binary
// split is a hard security boundary: restricted surfaces must never be
// able to invoke privileged operations regardless of page content.
func ProfileFor(address string) Profile {
	if navigation.IsInternal(address) {
		return ProfilePrivileged
	}
	return ProfileRestricted
}

// EventSink receives lifecycle events from one surface. The factory
// delivers events serially per surface; a sink implementation must not
// assume it is the only writer to shared state.
type EventSink func(types.SurfaceEvent)

// Surface is one isolated content-rendering view.
type Surface interface {
	// ID returns the surface's opaque engine-level identifier.
	ID() string
	// Profile returns the isolation profile fixed at creation.
	Profile() Profile
	// Load begins navigating to address. It does not block until the
	// load completes; completion arrives as EventLoadStopped.
	Load(ctx context.Context, address string) error
	// Back, Forward and Reload traverse the surface's own history.
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	// Show attaches the surface to the visible window; Hide detaches it.
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	// SetBounds resizes the surface to fill the content area.
	SetBounds(ctx context.Context, width, height int) error
	// Find runs in-page search. next continues an existing search in
	// the given direction; otherwise a fresh search starts.
	Find(ctx context.Context, text string, forward, next bool) error
	// StopFind clears all match highlighting. Idempotent: safe on a
	// surface with no active search.
	StopFind(ctx context.Context) error
	// PushDownloads delivers a downloads-list payload to the page for
	// the in-page downloads view.
	PushDownloads(ctx context.Context, payload []byte) error
	// Close destroys the surface and releases engine resources.
	Close(ctx context.Context) error
}

// Factory constructs surfaces.
type Factory interface {
	// Create builds a surface for address, choosing its isolation
	// profile from the address scheme, and wires sink to its lifecycle
	// events.
	Create(ctx context.Context, address string, sink EventSink) (Surface, error)
	// Close shuts the engine down, destroying all surfaces.
	Close(ctx context.Context) error
}

// DownloadSignalKind enumerates host-level download lifecycle signals.
type DownloadSignalKind string

const (
	DownloadBegin    DownloadSignalKind = "begin"
	DownloadProgress DownloadSignalKind = "progress"
	DownloadDone     DownloadSignalKind = "done"
)

// DownloadSignal is one host-level download observation. GUID is the
// engine's identifier; State is the raw terminal state string exactly
// as the host reported it.
type DownloadSignal struct {
	Kind              DownloadSignalKind
	GUID              string
	URL               string
	SuggestedFilename string
	Received          int64
	Total             int64
	State             string
}

// DownloadSink receives download signals from every storage partition.
type DownloadSink func(DownloadSignal)

// DownloadObserver is implemented by factories that surface host-level
// download events.
type DownloadObserver interface {
	ObserveDownloads(sink DownloadSink)
}
