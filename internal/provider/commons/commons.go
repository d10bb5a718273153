package commons

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/sydlexius/commonsfind/internal/provider"
)

const (
	// DefaultEndpoint is the Wikimedia Commons Action API.
	DefaultEndpoint = "https://commons.wikimedia.org/w/api.php"

	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 30 * time.Second

	fileNamespace = "6"
	maxBodyBytes  = 2 * 1024 * 1024
)

// Options configures an Adapter.
type Options struct {
	Endpoint  string
	UserAgent string        // sent only when non-empty
	Timeout   time.Duration // zero disables the client timeout
}

// Adapter implements provider.ImageSearcher for Wikimedia Commons file search.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	endpoint  string
	userAgent string
}

// New creates a Commons adapter with the default endpoint and timeout.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithOptions(limiter, logger, Options{Endpoint: DefaultEndpoint, Timeout: DefaultTimeout})
}

// NewWithEndpoint creates a Commons adapter with a custom endpoint (for testing).
func NewWithEndpoint(limiter *provider.RateLimiterMap, logger *slog.Logger, endpoint string) *Adapter {
	return NewWithOptions(limiter, logger, Options{Endpoint: endpoint, Timeout: DefaultTimeout})
}

// NewWithOptions creates a Commons adapter from explicit options.
func NewWithOptions(limiter *provider.RateLimiterMap, logger *slog.Logger, opts Options) *Adapter {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Adapter{
		client:    &http.Client{Timeout: opts.Timeout},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", string(provider.NameCommons))),
		endpoint:  endpoint,
		userAgent: opts.UserAgent,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameCommons }

// Lookup searches File: pages for query and returns the URL of the first hit.
func (a *Adapter) Lookup(ctx context.Context, query string) (*provider.ImageResult, error) {
	if err := a.limiter.Wait(ctx, provider.NameCommons); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	resp, err := a.search(ctx, query)
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("api error %s: %s", resp.Error.Code, resp.Error.Info),
		}
	}

	page, ok := firstPage(resp.Query)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameCommons, ID: query}
	}
	if len(page.ImageInfo) == 0 {
		return nil, &provider.ErrMalformedResponse{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("page %q has no imageinfo", page.Title),
		}
	}

	info := page.ImageInfo[0]
	if info.URL == "" {
		return nil, &provider.ErrMalformedResponse{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("page %q has no image url", page.Title),
		}
	}

	a.logger.Debug("image lookup completed",
		slog.String("query", query),
		slog.String("title", page.Title),
		slog.String("url", info.URL))

	return &provider.ImageResult{
		URL:            info.URL,
		Title:          page.Title,
		DescriptionURL: info.DescriptionURL,
		Source:         string(provider.NameCommons),
	}, nil
}

func (a *Adapter) search(ctx context.Context, query string) (*QueryResponse, error) {
	reqURL, err := buildSearchURL(a.endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("building search url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	a.logger.Debug("searching commons", slog.String("query", query))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from configured endpoint
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCommons,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("reading response: %w", err),
		}
	}

	var result QueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &provider.ErrMalformedResponse{
			Provider: provider.NameCommons,
			Cause:    fmt.Errorf("parsing search response: %w", err),
		}
	}
	return &result, nil
}

// buildSearchURL returns endpoint with the generator=search query string.
// Spaces are encoded as %20 rather than '+', and '/' is left as is.
func buildSearchURL(endpoint, query string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute url", endpoint)
	}

	params := url.Values{
		"action":       {"query"},
		"format":       {"json"},
		"generator":    {"search"},
		"gsrnamespace": {fileNamespace},
		"gsrsearch":    {query},
		"gsrlimit":     {"1"},
		"prop":         {"imageinfo"},
		"iiprop":       {"url"},
	}
	// QueryEscape turns a literal '+' into %2B and '%' into %25, so any '+'
	// left is a space and any %2F came from a '/'.
	u.RawQuery = strings.NewReplacer("+", "%20", "%2F", "/").Replace(params.Encode())
	return u.String(), nil
}

// firstPage picks a single page from the unordered pages map: the one with
// the best search rank, falling back to the lowest page key.
func firstPage(q *QueryResult) (Page, bool) {
	if q == nil || len(q.Pages) == 0 {
		return Page{}, false
	}

	var (
		best     Page
		bestRank = math.MaxInt
		found    bool
	)
	for _, key := range slices.Sorted(maps.Keys(q.Pages)) {
		p := q.Pages[key]
		rank := p.Index
		if rank <= 0 {
			rank = math.MaxInt - 1
		}
		if !found || rank < bestRank {
			best, bestRank, found = p, rank, true
		}
	}
	return best, found
}
