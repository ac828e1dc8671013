package pageinsight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bahjat/seo-audit/internal/model"
)

// testLinkChecker returns a LinkChecker with a default transport (no SSRF
// blocking) so tests can reach httptest servers on localhost.
func testLinkChecker(concurrency int) *LinkChecker {
	return newLinkChecker(concurrency, &http.Transport{
		MaxConnsPerHost:     concurrency,
		MaxIdleConnsPerHost: concurrency,
		IdleConnTimeout:     90 * time.Second,
	}, "TestBot/1.0")
}

func countBroken(statuses map[string]linkStatus) int {
	n := 0
	for _, st := range statuses {
		if st.broken {
			n++
		}
	}
	return n
}

func linkServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/ok")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/not-found", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/server-error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		// Blocks HEAD but allows GET.
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/method-not-allowed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/true-forbidden", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/unauthorized", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	return httptest.NewServer(mux)
}

func TestCheckLinks(t *testing.T) {
	ts := linkServer()
	defer ts.Close()

	tests := []struct {
		name     string
		links    []string
		expected int
	}{
		{
			name:     "all accessible",
			links:    []string{ts.URL + "/ok", ts.URL + "/redirect"},
			expected: 0,
		},
		{
			name:     "some inaccessible",
			links:    []string{ts.URL + "/ok", ts.URL + "/not-found", ts.URL + "/server-error"},
			expected: 2,
		},
		{
			name:     "empty list",
			links:    []string{},
			expected: 0,
		},
		{
			name:     "malformed URL counted as inaccessible",
			links:    []string{"://bad-url", ts.URL + "/ok"},
			expected: 1,
		},
		{
			name:     "403 on HEAD triggers GET fallback and succeeds",
			links:    []string{ts.URL + "/forbidden"},
			expected: 0,
		},
		{
			name:     "405 on HEAD triggers GET fallback and succeeds",
			links:    []string{ts.URL + "/method-not-allowed"},
			expected: 0,
		},
		{
			name:     "true 403 on both HEAD and GET is inaccessible",
			links:    []string{ts.URL + "/true-forbidden"},
			expected: 1,
		},
		{
			name:     "401 counted as inaccessible",
			links:    []string{ts.URL + "/unauthorized"},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statuses := testLinkChecker(10).checkLinks(context.Background(), tt.links)
			if got := countBroken(statuses); got != tt.expected {
				t.Errorf("inaccessible = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCheckLinks_MaxLinksLimit(t *testing.T) {
	var called int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&called, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	links := make([]string, 1100)
	for i := range links {
		links[i] = fmt.Sprintf("%s/page/%d", ts.URL, i)
	}

	statuses := testLinkChecker(10).checkLinks(context.Background(), links)

	if atomic.LoadInt64(&called) > maxLinks {
		t.Errorf("checked %d links, should cap at %d", called, maxLinks)
	}
	if len(statuses) != maxLinks {
		t.Errorf("statuses = %d, want %d", len(statuses), maxLinks)
	}
}

func TestCheckLink_ContextCancelled(t *testing.T) {
	ts := linkServer()
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if st := testLinkChecker(1).checkLink(ctx, ts.URL+"/ok"); st.broken {
		t.Error("cancelled check reported as broken")
	}
}

func TestCheckLink_GETFallbackFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	st := testLinkChecker(1).checkLink(context.Background(), ts.URL+"/page")
	if !st.broken || st.code != http.StatusInternalServerError {
		t.Errorf("status = %+v, want broken with 500", st)
	}
}

func TestNewLinkChecker_BlocksPrivateIPs(t *testing.T) {
	ts := linkServer()
	defer ts.Close()

	lc := NewLinkChecker(10, "", false)
	if st := lc.checkLink(context.Background(), ts.URL+"/ok"); !st.broken {
		t.Error("expected localhost to be blocked")
	}
}

func TestExtractLinks(t *testing.T) {
	base, _ := url.Parse("https://example.com/blog/")
	body := `<html><body>
		<a href="/about">About</a>
		<a href="post-1#comments">Post</a>
		<a href="https://other.org/x">Other</a>
		<a href="mailto:me@example.com">Mail</a>
		<a href="#top">Top</a>
		<a>no href</a>
		<img src="/logo.png">
		<picture><source srcset="/hero-1x.webp 1x, /hero-2x.webp 2x"></picture>
	</body></html>`

	links, err := ExtractLinks(strings.NewReader(body), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Link{
		{URL: "https://example.com/about", Tag: "a", Internal: true},
		{URL: "https://example.com/blog/post-1", Tag: "a", Internal: true},
		{URL: "https://other.org/x", Tag: "a", Internal: false},
		{URL: "https://example.com/logo.png", Tag: "img", Internal: true},
		{URL: "https://example.com/hero-1x.webp", Tag: "source", Internal: true},
		{URL: "https://example.com/hero-2x.webp", Tag: "source", Internal: true},
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d: %+v", len(links), len(want), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %+v, want %+v", i, links[i], want[i])
		}
	}
}

func TestScan_EmitsEveryOccurrenceInOrder(t *testing.T) {
	var head int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&head, 1)
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	body := []byte(`<a href="/ok">1</a><img src="/missing.png"><a href="/ok">2</a>`)

	var got []model.LinkResult
	err := testLinkChecker(4).Scan(context.Background(), ts.URL+"/", body, func(r model.LinkResult) {
		got = append(got, r)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("emitted %d results, want 3", len(got))
	}
	if got[0].Tag != "a" || got[1].Tag != "img" || got[2].Tag != "a" {
		t.Errorf("tags out of order: %+v", got)
	}
	if !got[1].Broken || got[1].StatusCode != http.StatusNotFound {
		t.Errorf("image result = %+v, want broken 404", got[1])
	}
	if got[0].Broken || !got[0].Internal {
		t.Errorf("anchor result = %+v, want internal and healthy", got[0])
	}
	if n := atomic.LoadInt64(&head); n != 2 {
		t.Errorf("server hit %d times, want 2 (duplicates checked once)", n)
	}
}

// BenchmarkCheckLinksLatency benchmarks the worker pool with simulated
// network latency (50ms per request).
func BenchmarkCheckLinksLatency(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	for _, n := range []int{1, 10, 50} {
		links := make([]string, n)
		for i := range links {
			links[i] = fmt.Sprintf("%s/ok/%d", ts.URL, i)
		}

		b.Run(fmt.Sprintf("worker_pool_%d", n), func(b *testing.B) {
			lc := testLinkChecker(10)
			b.ResetTimer()
			for range b.N {
				lc.checkLinks(context.Background(), links)
			}
		})
	}
}
