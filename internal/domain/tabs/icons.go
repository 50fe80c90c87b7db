package tabs

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/logging"
)

// iconProber fetches a page and extracts its declared icon. Pages that
// declare none fall back to the conventional /favicon.ico at the site
// root.
type iconProber struct {
	client *resty.Client
	log    *logging.Logger
}

func newIconProber(log *logging.Logger) *iconProber {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &iconProber{client: client, log: log.Named("icons")}
}

// iconRels are the link relations that can carry an icon, in
// preference order.
var iconRels = []string{
	"link[rel='icon']",
	"link[rel='shortcut icon']",
	"link[rel='apple-touch-icon']",
}

// Probe returns an absolute icon URL for the page, or "" when none can
// be determined.
func (p *iconProber) Probe(pageURL string) string {
	resp, err := p.client.R().Get(pageURL)
	if err != nil || resp.IsError() {
		p.log.Debug("icon probe fetch failed", zap.String("address", pageURL), zap.Error(err))
		return fallbackIcon(pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fallbackIcon(pageURL)
	}

	for _, sel := range iconRels {
		href, ok := doc.Find(sel).First().Attr("href")
		if ok && href != "" {
			if resolved := resolveIconURL(pageURL, href); resolved != "" {
				return resolved
			}
		}
	}
	return fallbackIcon(pageURL)
}

// scheduleIconProbe probes the tab's icon after a short settle delay;
// pages often inject their link tags late. The result is dropped when
// the tab has closed or navigated away in the meantime.
func (m *Manager) scheduleIconProbe(tabID, address string) {
	delay := m.iconSettleDelay
	time.AfterFunc(delay, func() {
		icon := m.icons.Probe(address)
		if icon == "" {
			return
		}

		m.mu.Lock()
		rec, ok := m.tabs[tabID]
		if !ok || rec.tab.Address != address || rec.tab.Icon == icon {
			m.mu.Unlock()
			return
		}
		rec.tab.Icon = icon
		m.mu.Unlock()

		m.publish(tabUpdated(tabID, map[string]any{"icon": icon}))
	})
}

// resolveIconURL turns an icon reference from page markup into an
// absolute URL. References may be absolute, protocol-relative
// (//host/path), root-relative (/path), or relative to the page.
func resolveIconURL(pageURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return base.Scheme + ":" + ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(rel).String()
}

// fallbackIcon is the site-root /favicon.ico convention.
func fallbackIcon(pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return ""
	}
	return base.Scheme + "://" + base.Host + "/favicon.ico"
}
