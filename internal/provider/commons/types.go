package commons

// MediaWiki Action API response types for generator=search&prop=imageinfo.

// QueryResponse is the top-level response from api.php.
type QueryResponse struct {
	Query *QueryResult `json:"query,omitempty"`
	Error *APIError    `json:"error,omitempty"`
}

// QueryResult holds the pages produced by the search generator, keyed by page ID.
type QueryResult struct {
	Pages map[string]Page `json:"pages"`
}

// Page is a single File: namespace page.
type Page struct {
	PageID    int         `json:"pageid"`
	NS        int         `json:"ns"`
	Title     string      `json:"title"`
	Index     int         `json:"index"` // search rank, 1-based
	ImageInfo []ImageInfo `json:"imageinfo"`
}

// ImageInfo carries the direct file URL (iiprop=url).
type ImageInfo struct {
	URL                 string `json:"url"`
	DescriptionURL      string `json:"descriptionurl"`
	DescriptionShortURL string `json:"descriptionshorturl"`
}

// APIError is returned by MediaWiki instead of "query" when a request is rejected.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}
