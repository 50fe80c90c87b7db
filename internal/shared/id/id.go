// Package id provides prefixed ULID generation for every record family
// that needs an opaque, stable identifier (tabs, downloads, bookmarks,
// folders). ULIDs are lexicographically sortable, so creation order is
// recoverable from the id alone, and prefixes keep logs readable.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TabPrefix      = "tab"
	DownloadPrefix = "dl"
	BookmarkPrefix = "bm"
	FolderPrefix   = "fld"
)

// Generator produces ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator with the given entropy source.
// Tests may pass a deterministic reader.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID string.
func (g *Generator) Generate() string {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// WithPrefix creates a prefixed ULID string.
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate())
}

// NewTabID generates a tab identifier.
func NewTabID() string { return Default().WithPrefix(TabPrefix) }

// NewDownloadID generates a download identifier.
func NewDownloadID() string { return Default().WithPrefix(DownloadPrefix) }

// NewBookmarkID generates a bookmark identifier.
func NewBookmarkID() string { return Default().WithPrefix(BookmarkPrefix) }

// NewFolderID generates a bookmark folder identifier.
func NewFolderID() string { return Default().WithPrefix(FolderPrefix) }
