package siteprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestProber(t *testing.T) {
	var gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("User-agent: *\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, err := url.Parse(srv.URL + "/blog/post?x=1")
	if err != nil {
		t.Fatal(err)
	}
	p := New(srv.Client(), "SEOAuditBot/1.0")

	if !p.Robots(context.Background(), base) {
		t.Error("Robots() = false, want true")
	}
	if p.Sitemap(context.Background(), base) {
		t.Error("Sitemap() = true, want false for a 404")
	}
	if gotUA != "SEOAuditBot/1.0" {
		t.Errorf("User-Agent = %q, want SEOAuditBot/1.0", gotUA)
	}
}

func TestProber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base, _ := url.Parse(srv.URL)
	srv.Close()

	p := New(nil, "")
	if p.Robots(context.Background(), base) {
		t.Error("Robots() = true for a closed server")
	}
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://example.com:8443/a/b?q=1#frag")
	if got := resolve(base, "/sitemap.xml"); got != "https://example.com:8443/sitemap.xml" {
		t.Errorf("resolve = %q", got)
	}
}
