package commons

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sydlexius/commonsfind/internal/provider"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAdapter(endpoint string) *Adapter {
	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameCommons, 0)
	return NewWithEndpoint(limiter, testLogger(), endpoint)
}

func serveBody(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(body)
	}))
}

func TestLookup(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(loadFixture(t, "search_le_sirenuse.json"))
	}))
	defer srv.Close()

	a := newAdapter(srv.URL + "/w/api.php")
	img, err := a.Lookup(context.Background(), "Le Sirenuse Positano")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := "https://upload.wikimedia.org/wikipedia/commons/3/3a/Le_Sirenuse%2C_Positano.jpg"
	if img.URL != want {
		t.Errorf("expected %s, got %s", want, img.URL)
	}
	if img.Title != "File:Le Sirenuse, Positano.jpg" {
		t.Errorf("unexpected title %q", img.Title)
	}
	if img.Source != string(provider.NameCommons) {
		t.Errorf("expected source commons, got %s", img.Source)
	}
	if !strings.Contains(rawQuery, "gsrsearch=Le%20Sirenuse%20Positano") {
		t.Errorf("expected %%20-encoded query, got %s", rawQuery)
	}
}

func TestLookupRequestParams(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write(loadFixture(t, "search_le_sirenuse.json"))
	}))
	defer srv.Close()

	a := newAdapter(srv.URL)
	if _, err := a.Lookup(context.Background(), "Riva Aquarama"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	want := map[string]string{
		"action":       "query",
		"format":       "json",
		"generator":    "search",
		"gsrnamespace": "6",
		"gsrsearch":    "Riva Aquarama",
		"gsrlimit":     "1",
		"prop":         "imageinfo",
		"iiprop":       "url",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("param %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestLookupUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write(loadFixture(t, "search_le_sirenuse.json"))
	}))
	defer srv.Close()

	limiter := provider.NewRateLimiterMap()
	a := NewWithOptions(limiter, testLogger(), Options{
		Endpoint:  srv.URL,
		UserAgent: "commonsfind/test (ops@example.com)",
	})
	if _, err := a.Lookup(context.Background(), "Palazzo Avino"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ua != "commonsfind/test (ops@example.com)" {
		t.Errorf("expected configured user agent, got %q", ua)
	}
}

func TestLookupPicksBestRankedPage(t *testing.T) {
	srv := serveBody(t, loadFixture(t, "search_multiple_pages.json"))
	defer srv.Close()

	a := newAdapter(srv.URL)
	img, err := a.Lookup(context.Background(), "Capri Blue Grotto")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if img.URL != "https://upload.wikimedia.org/wikipedia/commons/a/a1/Capri_Blue_Grotto.jpg" {
		t.Errorf("expected index 1 page, got %s", img.URL)
	}
}

func TestLookupNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no query object", `{"batchcomplete":""}`},
		{"empty pages", `{"batchcomplete":"","query":{"pages":{}}}`},
		{"null pages", `{"query":{"pages":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveBody(t, []byte(tt.body))
			defer srv.Close()

			_, err := newAdapter(srv.URL).Lookup(context.Background(), "Mercedes V-Class black")
			var nf *provider.ErrNotFound
			if !errors.As(err, &nf) {
				t.Fatalf("expected ErrNotFound, got %T (%v)", err, err)
			}
			if nf.ID != "Mercedes V-Class black" {
				t.Errorf("expected query as ID, got %q", nf.ID)
			}
		})
	}
}

func TestLookupMalformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("<html><body>Service temporarily unavailable</body></html>")},
		{"truncated json", []byte(`{"query":{"pages":{"1":`)},
		{"empty imageinfo", loadFixture(t, "search_no_imageinfo.json")},
		{"missing imageinfo", []byte(`{"query":{"pages":{"7":{"pageid":7,"title":"File:A.jpg","index":1}}}}`)},
		{"empty url", []byte(`{"query":{"pages":{"7":{"pageid":7,"title":"File:A.jpg","index":1,"imageinfo":[{"url":""}]}}}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveBody(t, tt.body)
			defer srv.Close()

			_, err := newAdapter(srv.URL).Lookup(context.Background(), "Villa Cimbrone ravello")
			var mr *provider.ErrMalformedResponse
			if !errors.As(err, &mr) {
				t.Fatalf("expected ErrMalformedResponse, got %T (%v)", err, err)
			}
		})
	}
}

func TestLookupAPIError(t *testing.T) {
	srv := serveBody(t, loadFixture(t, "error_badvalue.json"))
	defer srv.Close()

	_, err := newAdapter(srv.URL).Lookup(context.Background(), "Capri")
	var pu *provider.ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
	if !strings.Contains(err.Error(), "badvalue") {
		t.Errorf("expected api error code in message, got %v", err)
	}
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newAdapter(srv.URL).Lookup(context.Background(), "Capri")
	var pu *provider.ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
	if !strings.Contains(err.Error(), "HTTP 503") {
		t.Errorf("expected status in message, got %v", err)
	}
}

func TestLookupConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newAdapter(endpoint).Lookup(context.Background(), "Capri")
	var pu *provider.ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameCommons, 0)
	a := NewWithOptions(limiter, testLogger(), Options{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := a.Lookup(context.Background(), "Positano sunset balcony")
	var pu *provider.ErrProviderUnavailable
	if !errors.As(err, &pu) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected client timeout to fire quickly, took %s", elapsed)
	}
}

func TestLookupCanceledContext(t *testing.T) {
	srv := serveBody(t, loadFixture(t, "search_le_sirenuse.json"))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAdapter(srv.URL).Lookup(ctx, "Capri")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Le Sirenuse Positano", "gsrsearch=Le%20Sirenuse%20Positano"},
		{"Mercedes V-Class black", "gsrsearch=Mercedes%20V-Class%20black"},
		{"a+b & c", "gsrsearch=a%2Bb%20%26%20c"},
		{"Caffè Positano", "gsrsearch=Caff%C3%A8%20Positano"},
		{"AC/DC", "gsrsearch=AC/DC&"},
		{"100%2F", "gsrsearch=100%252F&"},
	}
	for _, tt := range tests {
		got, err := buildSearchURL(DefaultEndpoint, tt.query)
		if err != nil {
			t.Fatalf("buildSearchURL(%q): %v", tt.query, err)
		}
		if !strings.HasPrefix(got, DefaultEndpoint+"?") {
			t.Errorf("expected endpoint prefix, got %s", got)
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("buildSearchURL(%q) = %s, want it to contain %s", tt.query, got, tt.want)
		}
	}
}

func TestBuildSearchURLInvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"api.php", "://bad"} {
		if _, err := buildSearchURL(endpoint, "x"); err == nil {
			t.Errorf("expected error for endpoint %q", endpoint)
		}
	}
}

func TestFirstPage(t *testing.T) {
	if _, ok := firstPage(nil); ok {
		t.Error("expected no page for nil result")
	}
	if _, ok := firstPage(&QueryResult{}); ok {
		t.Error("expected no page for empty result")
	}

	q := &QueryResult{Pages: map[string]Page{
		"30": {Title: "File:Unranked.jpg"},
		"20": {Title: "File:Second.jpg", Index: 2},
		"10": {Title: "File:Also second.jpg", Index: 2},
	}}
	p, ok := firstPage(q)
	if !ok {
		t.Fatal("expected a page")
	}
	if p.Title != "File:Also second.jpg" {
		t.Errorf("expected lowest key among best rank, got %s", p.Title)
	}
}

func TestName(t *testing.T) {
	if got := newAdapter(DefaultEndpoint).Name(); got != provider.NameCommons {
		t.Errorf("expected commons, got %s", got)
	}
}
