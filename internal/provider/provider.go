package provider

import (
	"context"
	"fmt"
)

// ProviderName uniquely identifies an image source.
type ProviderName string

// Known provider names.
const (
	NameCommons ProviderName = "commons"
)

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameCommons:
		return "Wikimedia Commons"
	default:
		return string(n)
	}
}

// ImageResult is a single image located by a provider.
type ImageResult struct {
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	DescriptionURL string `json:"description_url,omitempty"`
	Source         string `json:"source"`
}

// ImageSearcher looks up the best matching image for a free-text query.
type ImageSearcher interface {
	Name() ProviderName

	// Lookup returns the first image matching query. It returns
	// *ErrNotFound when the provider has no match.
	Lookup(ctx context.Context, query string) (*ImageResult, error)
}

// ErrProviderUnavailable indicates a transport-level failure (rate limiter
// canceled, connection error, non-200 status, API error object).
type ErrProviderUnavailable struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider returned no match for the query.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: no results for %q", e.Provider, e.ID)
}

// ErrMalformedResponse indicates the provider answered, but the body could
// not be decoded or lacked a field the lookup depends on.
type ErrMalformedResponse struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("provider %s: malformed response: %v", e.Provider, e.Cause)
}

func (e *ErrMalformedResponse) Unwrap() error { return e.Cause }
