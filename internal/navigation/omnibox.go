package navigation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// domainPattern matches bare domain inputs like "example.com" or
// "sub.example.co.uk/path": at least one label, a dot, and a TLD of
// two or more letters before any path.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*(\.[a-zA-Z0-9][a-zA-Z0-9-]*)*\.[a-zA-Z]{2,}(:[0-9]+)?(/.*)?$`)

// Omnibox resolves free-form address bar input.
type Omnibox struct {
	searchEngine string // URL template with a %s query slot
}

// NewOmnibox creates an omnibox resolver for the configured search
// engine template.
func NewOmnibox(searchEngine string) *Omnibox {
	return &Omnibox{searchEngine: searchEngine}
}

// Resolve turns raw user input into a navigable address. Input that
// looks like an address (explicit protocol prefix, localhost, or a
// domain-dot-TLD shape) navigates directly; anything else becomes a
// search engine query.
func (o *Omnibox) Resolve(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return NewTabAddress
	}

	if looksNavigable(input) {
		if hasScheme(input) {
			return input
		}
		return "https://" + input
	}
	return fmt.Sprintf(o.searchEngine, url.QueryEscape(input))
}

// looksNavigable implements the address heuristic: explicit transfer
// protocol prefix, localhost, or a domain-label-dot-TLD pattern.
func looksNavigable(input string) bool {
	if hasScheme(input) {
		return true
	}
	if strings.HasPrefix(input, "localhost") {
		return true
	}
	if strings.ContainsAny(input, " \t") {
		return false
	}
	return domainPattern.MatchString(input)
}

func hasScheme(input string) bool {
	lower := strings.ToLower(input)
	for _, prefix := range []string{"http://", "https://", Scheme + "://"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// OpenTarget extracts the ?url= parameter of a lumen://open address and
// resolves it. Returns false if address is not an open request.
func (o *Omnibox) OpenTarget(address string) (string, bool) {
	if !IsInternal(address) {
		return "", false
	}
	u, err := url.Parse(address)
	if err != nil || !strings.EqualFold(u.Host, HostOpen) {
		return "", false
	}
	raw := u.Query().Get("url")
	if raw == "" {
		return NewTabAddress, true
	}
	return o.Resolve(raw), true
}
