package navigation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal("lumen://newtab"))
	assert.True(t, IsInternal("LUMEN://settings"))
	assert.False(t, IsInternal("https://example.com"))
	assert.False(t, IsInternal("lumenish://x"))
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "New Tab", DefaultTitle("lumen://newtab"))
	assert.Equal(t, "Settings", DefaultTitle("lumen://settings"))
	assert.Equal(t, "Downloads", DefaultTitle("lumen://downloads"))
	// Unknown internal hosts fall back to the new-tab label rather than
	// leaking the literal address.
	assert.Equal(t, "New Tab", DefaultTitle("lumen://unknown"))
	assert.Equal(t, "example.com", DefaultTitle("https://example.com/deep/path"))
}

func TestResolveAsset(t *testing.T) {
	root := t.TempDir()

	p, err := ResolveAsset(root, "lumen://newtab/style.css")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "newtab", "style.css"), p)

	p, err = ResolveAsset(root, "lumen://settings")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "settings", "index.html"), p)
}

func TestResolveAssetRejectsTraversal(t *testing.T) {
	root := t.TempDir()

	_, err := ResolveAsset(root, "lumen://newtab/../../etc/passwd")
	assert.Error(t, err)
	_, err = ResolveAsset(root, "lumen://../escape")
	assert.Error(t, err)
	_, err = ResolveAsset(root, "https://example.com/x")
	assert.Error(t, err)
}

func TestOmniboxResolve(t *testing.T) {
	o := NewOmnibox("https://s.test/?q=%s")

	// Explicit protocol prefixes pass through untouched.
	assert.Equal(t, "https://example.com/a", o.Resolve("https://example.com/a"))
	assert.Equal(t, "http://example.com", o.Resolve("http://example.com"))
	assert.Equal(t, "lumen://history", o.Resolve("lumen://history"))

	// localhost and domain-shaped input get a scheme prepended.
	assert.Equal(t, "https://localhost:8080/x", o.Resolve("localhost:8080/x"))
	assert.Equal(t, "https://example.com", o.Resolve("example.com"))
	assert.Equal(t, "https://sub.example.co.uk/path", o.Resolve("sub.example.co.uk/path"))

	// Free text becomes a search query.
	assert.Equal(t, "https://s.test/?q=how+to+tie+a+knot", o.Resolve("how to tie a knot"))
	assert.Equal(t, "https://s.test/?q=example", o.Resolve("example"))

	// Empty input goes home.
	assert.Equal(t, NewTabAddress, o.Resolve("  "))
}

func TestOmniboxOpenTarget(t *testing.T) {
	o := NewOmnibox("https://s.test/?q=%s")

	target, ok := o.OpenTarget("lumen://open?url=example.com")
	require.True(t, ok)
	assert.Equal(t, "https://example.com", target)

	target, ok = o.OpenTarget("lumen://open?url=some+search+terms")
	require.True(t, ok)
	assert.Equal(t, "https://s.test/?q=some+search+terms", target)

	_, ok = o.OpenTarget("lumen://newtab")
	assert.False(t, ok)
	_, ok = o.OpenTarget("https://example.com?url=x")
	assert.False(t, ok)
}
