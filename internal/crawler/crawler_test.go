package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Bahjat/seo-audit/internal/model"
	"github.com/Bahjat/seo-audit/internal/pageinsight"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// site serves a small HTML site from a path -> body map. Paths not in the
// map answer 404.
func site(t *testing.T, pages map[string]string, extra func(mux *http.ServeMux)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if extra != nil {
		extra(mux)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, body)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newCrawler(t *testing.T, opts Options) *Crawler {
	t.Helper()
	fetcher := pageinsight.NewHTTPClient(pageinsight.ClientOptions{AllowPrivateNetworks: true})
	c, err := New(fetcher, opts, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) handle(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) of(kind model.EventKind) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func urls(pages []model.FetchedPage) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.URL
	}
	return out
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

var linkedSite = map[string]string{
	"/":         `<a href="/a">A</a><a href="/b#top">B</a><a href="https://elsewhere.example/">X</a>`,
	"/a":        `<a href="/a/deep">Deep</a><a href="/">Home</a>`,
	"/b":        `<a href="/logo.png">Logo</a><a href="/wp-json/v2">API</a>`,
	"/a/deep":   `<p>deep</p>`,
	"/logo.png": `png`,
}

func TestCrawl_Depth(t *testing.T) {
	ts := site(t, linkedSite, nil)

	tests := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{name: "seed only", maxDepth: 1, want: []string{"/"}},
		{name: "one level", maxDepth: 2, want: []string{"/", "/a", "/b"}},
		{name: "unlimited", maxDepth: 0, want: []string{"/", "/a", "/b", "/a/deep"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCrawler(t, Options{
				MaxDepth:         tt.maxDepth,
				MaxConcurrency:   4,
				ExcludeFileTypes: []string{"png"},
				ExcludeURLs:      []string{"/wp-json/"},
			})

			pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := urls(pages)
			if len(got) != len(tt.want) {
				t.Fatalf("pages = %v, want %d pages", got, len(tt.want))
			}
			for i, p := range tt.want {
				if got[i] != ts.URL+p {
					t.Errorf("pages[%d] = %q, want %q", i, got[i], ts.URL+p)
				}
			}
		})
	}
}

func TestCrawl_MaxPages(t *testing.T) {
	ts := site(t, linkedSite, nil)
	c := newCrawler(t, Options{MaxPages: 2, MaxConcurrency: 1})

	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %v, want 2", urls(pages))
	}
	if pages[0].URL != ts.URL+"/" {
		t.Errorf("first page = %q, want the seed", pages[0].URL)
	}
}

func TestCrawl_SeedPathPrefix(t *testing.T) {
	ts := site(t, map[string]string{
		"/blog/":     `<a href="/blog/post">Post</a><a href="/shop">Shop</a>`,
		"/blog/post": `post`,
		"/shop":      `shop`,
	}, nil)
	c := newCrawler(t, Options{MaxConcurrency: 2})

	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/blog/"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := urls(pages); len(got) != 2 || got[1] != ts.URL+"/blog/post" {
		t.Errorf("pages = %v, want seed and /blog/post", got)
	}
}

func TestCrawl_RobotsAndNoindex(t *testing.T) {
	ts := site(t, map[string]string{
		"/":          `<a href="/private/x">P</a><a href="/hidden">H</a><a href="/ok">OK</a>`,
		"/private/x": `private`,
		"/hidden":    `<meta name="robots" content="noindex">hidden`,
		"/ok":        `ok`,
	}, func(mux *http.ServeMux) {
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		})
	})
	c := newCrawler(t, Options{MaxConcurrency: 2, RespectRobotsTxt: true, UserAgent: "SEOAuditBot/1.0"})

	rec := &recorder{}
	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), rec.handle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := urls(pages)
	if len(got) != 2 || got[1] != ts.URL+"/ok" {
		t.Errorf("pages = %v, want seed and /ok", got)
	}
	ignored := rec.of(model.EventIgnore)
	if len(ignored) != 1 || ignored[0].URL != ts.URL+"/hidden" {
		t.Errorf("ignore events = %+v, want /hidden", ignored)
	}
	if adds := rec.of(model.EventAdd); len(adds) != 2 {
		t.Errorf("add events = %d, want 2", len(adds))
	}
}

func TestCrawl_ErrorEvents(t *testing.T) {
	ts := site(t, map[string]string{
		"/": `<a href="/missing">M</a><a href="/gone">G</a><a href="/slow">S</a><a href="/broken">B</a>`,
	}, func(mux *http.ServeMux) {
		mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusGone)
		})
		mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusRequestTimeout)
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
	})
	c := newCrawler(t, Options{MaxConcurrency: 4})

	rec := &recorder{}
	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), rec.handle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %v, want only the seed", urls(pages))
	}

	codes := map[int]bool{}
	for _, ev := range rec.of(model.EventError) {
		codes[ev.Code] = true
		if ev.Message == "" {
			t.Errorf("error event for %s has no message", ev.URL)
		}
	}
	for _, code := range []int{404, 408, 410, 500} {
		if !codes[code] {
			t.Errorf("missing error event with code %d", code)
		}
	}
}

func TestCrawl_UnsupportedContent(t *testing.T) {
	serve := func(mux *http.ServeMux) {
		mux.HandleFunc("/doc.txt", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, "plain")
		})
	}
	pages := map[string]string{"/": `<a href="/doc.txt">Doc</a>`}

	tests := []struct {
		name      string
		download  bool
		wantPages int
	}{
		{name: "skipped by default", download: false, wantPages: 1},
		{name: "downloaded when enabled", download: true, wantPages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := site(t, pages, serve)
			c := newCrawler(t, Options{MaxConcurrency: 1, DownloadUnsupported: tt.download})

			got, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.wantPages {
				t.Errorf("pages = %v, want %d", urls(got), tt.wantPages)
			}
		})
	}
}

func TestFetchList_InputOrder(t *testing.T) {
	ts := site(t, map[string]string{
		"/one":   `<a href="/two">Two</a>`,
		"/two":   `two`,
		"/three": `three`,
	}, nil)
	c := newCrawler(t, Options{MaxConcurrency: 3})

	list := []*url.URL{
		mustURL(t, ts.URL+"/three"),
		mustURL(t, ts.URL+"/missing"),
		mustURL(t, ts.URL+"/one"),
	}
	rec := &recorder{}
	pages, err := c.FetchList(context.Background(), list, rec.handle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := urls(pages)
	if len(got) != 2 || got[0] != ts.URL+"/three" || got[1] != ts.URL+"/one" {
		t.Errorf("pages = %v, want /three then /one", got)
	}
	if errs := rec.of(model.EventError); len(errs) != 1 || errs[0].Code != http.StatusNotFound {
		t.Errorf("error events = %+v, want one 404", errs)
	}
}

func TestCrawl_Stop(t *testing.T) {
	release := make(chan struct{})
	ts := site(t, map[string]string{
		"/": `<a href="/wait">Wait</a>`,
	}, func(mux *http.ServeMux) {
		mux.HandleFunc("/wait", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			_, _ = fmt.Fprint(w, "late")
		})
	})
	defer close(release)

	c := newCrawler(t, Options{MaxConcurrency: 1})
	rec := &recorder{}
	handler := func(ev model.Event) {
		rec.handle(ev)
		if ev.Kind == model.EventAdd {
			// Stop once the seed is in; the /wait fetch is in flight or queued.
			go c.Stop()
		}
	}

	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %v, want only the seed", urls(pages))
	}
}

func TestCrawl_OverlappingRuns(t *testing.T) {
	gate := func(entered chan<- struct{}, release <-chan struct{}, title string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			entered <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprintf(w, "<title>%s</title>", title)
		}
	}
	enteredA, releaseA := make(chan struct{}, 1), make(chan struct{})
	enteredB, releaseB := make(chan struct{}, 1), make(chan struct{})
	ts := site(t, nil, func(mux *http.ServeMux) {
		mux.HandleFunc("/a", gate(enteredA, releaseA, "A"))
		mux.HandleFunc("/b", gate(enteredB, releaseB, "B"))
	})

	// One crawler serves both calls, as it does behind the HTTP server.
	c := newCrawler(t, Options{MaxDepth: 1, MaxConcurrency: 2})

	type result struct {
		pages []model.FetchedPage
		err   error
	}
	crawl := func(path string) <-chan result {
		done := make(chan result, 1)
		go func() {
			pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+path), nil)
			done <- result{pages, err}
		}()
		return done
	}

	doneA := crawl("/a")
	<-enteredA
	doneB := crawl("/b")
	<-enteredB

	// The first crawl ends while the second is still fetching.
	close(releaseA)
	a := <-doneA
	close(releaseB)
	b := <-doneB

	if a.err != nil || len(a.pages) != 1 || a.pages[0].URL != ts.URL+"/a" {
		t.Errorf("first crawl = %v, %v; want /a", urls(a.pages), a.err)
	}
	if b.err != nil || len(b.pages) != 1 || b.pages[0].URL != ts.URL+"/b" {
		t.Errorf("second crawl = %v, %v; want /b", urls(b.pages), b.err)
	}
}

func TestCrawl_RunsAfterStop(t *testing.T) {
	ts := site(t, linkedSite, nil)
	c := newCrawler(t, Options{MaxDepth: 1})
	c.Stop()

	pages, err := c.Crawl(context.Background(), mustURL(t, ts.URL+"/"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %v, want the seed", urls(pages))
	}
}

func TestCrawl_CancelledContext(t *testing.T) {
	ts := site(t, linkedSite, nil)
	c := newCrawler(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Crawl(ctx, mustURL(t, ts.URL+"/"), nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNew_InvalidExclude(t *testing.T) {
	if _, err := New(nil, Options{ExcludeURLs: []string{"("}}, discardLogger()); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
