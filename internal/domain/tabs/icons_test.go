package tabs

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenbrowser/lumen/internal/logging"
)

func TestResolveIconURL(t *testing.T) {
	tests := []struct {
		name string
		page string
		ref  string
		want string
	}{
		{"absolute", "https://example.com/docs", "https://cdn.example.com/i.png", "https://cdn.example.com/i.png"},
		{"protocol relative", "https://example.com/docs", "//cdn.example.com/i.png", "https://cdn.example.com/i.png"},
		{"root relative", "https://example.com/docs/page", "/static/i.png", "https://example.com/static/i.png"},
		{"path relative", "https://example.com/docs/page", "i.png", "https://example.com/docs/i.png"},
		{"empty ref", "https://example.com", "", ""},
		{"bad base", "::::", "/i.png", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveIconURL(tt.page, tt.ref))
		})
	}
}

func TestProbeFindsDeclaredIcon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><link rel="icon" href="/assets/favicon.svg"></head><body></body></html>`)
	}))
	defer srv.Close()

	p := newIconProber(logging.NewNop())
	assert.Equal(t, srv.URL+"/assets/favicon.svg", p.Probe(srv.URL+"/page"))
}

func TestProbeFallsBackToConventionalPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>no icon here</title></head></html>`)
	}))
	defer srv.Close()

	p := newIconProber(logging.NewNop())
	assert.Equal(t, srv.URL+"/favicon.ico", p.Probe(srv.URL+"/page"))
}

func TestProbeFetchFailureFallsBack(t *testing.T) {
	p := newIconProber(logging.NewNop())
	// Nothing listens here; the probe should still produce the
	// conventional fallback rather than an error.
	assert.Equal(t, "http://127.0.0.1:1/favicon.ico", p.Probe("http://127.0.0.1:1/page"))
}
