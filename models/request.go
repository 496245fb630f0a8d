package models

import (
	"net/url"
)

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required, absolute http(s).
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the entire
	// scrape operation (fetch + rendering + extraction).
	// Default: 90. Max: 180.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=180"`

	// MaxAge enables a cache lookup: a cached result younger than
	// MaxAge milliseconds is returned without re-scraping.
	// 0 (default) disables caching for the request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 90
	}
}

// Validate checks that the URL is absolute with an http or https scheme.
// This is the only request-level failure: everything downstream degrades
// to a partial result instead of rejecting the request.
func (r *ScrapeRequest) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return NewPipelineError(ErrCodeInvalidInput, "malformed URL", err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return NewPipelineError(ErrCodeInvalidInput,
			"URL must be absolute with an http or https scheme", nil)
	}
	if u.Host == "" {
		return NewPipelineError(ErrCodeInvalidInput, "URL has no host", nil)
	}
	return nil
}
