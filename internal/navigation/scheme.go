// Package navigation owns the application's internal addressing scheme
// and the omnibox input heuristic: which built-in page an internal
// address routes to, which asset file it resolves to, and whether a
// typed string is a navigable address or a search query.
package navigation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme is the application-reserved URI scheme for built-in pages.
const Scheme = "lumen"

// Built-in page hosts under the internal scheme.
const (
	HostNewTab    = "newtab"
	HostSettings  = "settings"
	HostHistory   = "history"
	HostDownloads = "downloads"
	HostMenu      = "menu"
	HostOmnibox   = "omnibox"
	// HostOpen is the reserved host that accepts a ?url= parameter and
	// resolves it to either a direct navigation or a search query.
	HostOpen = "open"
)

// NewTabAddress is the default address for tabs created without one.
const NewTabAddress = Scheme + "://" + HostNewTab

// AppIconAddress is the fixed icon used for every internal page.
const AppIconAddress = Scheme + "://" + HostMenu + "/app-icon.svg"

// IsInternal reports whether address is under the internal scheme.
func IsInternal(address string) bool {
	return strings.HasPrefix(strings.ToLower(address), Scheme+"://") ||
		strings.EqualFold(address, Scheme+":")
}

// defaultTitles labels internal pages before their content loads.
var defaultTitles = map[string]string{
	HostNewTab:    "New Tab",
	HostSettings:  "Settings",
	HostHistory:   "History",
	HostDownloads: "Downloads",
	HostMenu:      "Menu",
	HostOmnibox:   "Search",
}

// DefaultTitle returns the scheme-specific label for an address: a
// built-in page name for internal addresses, the bare host for external
// ones, and the address itself when no host can be extracted.
func DefaultTitle(address string) string {
	if IsInternal(address) {
		u, err := url.Parse(address)
		if err == nil {
			if title, ok := defaultTitles[strings.ToLower(u.Host)]; ok {
				return title
			}
		}
		return defaultTitles[HostNewTab]
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return address
	}
	return u.Host
}

// ResolveAsset maps an internal address to a file under the asset root.
// Any path that escapes the root after cleaning is rejected; this is
// the only filesystem surface internal pages can reach.
func ResolveAsset(assetRoot, address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("malformed internal address: %w", err)
	}
	if !strings.EqualFold(u.Scheme, Scheme) {
		return "", fmt.Errorf("not an internal address: %s", address)
	}

	rel := u.Path
	if rel == "" || rel == "/" {
		rel = "/index.html"
	}

	root, err := filepath.Abs(assetRoot)
	if err != nil {
		return "", fmt.Errorf("resolve asset root: %w", err)
	}
	resolved := filepath.Join(root, u.Host, filepath.FromSlash(rel))
	resolved = filepath.Clean(resolved)

	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", fmt.Errorf("asset path escapes asset root: %s", address)
	}
	return resolved, nil
}
