package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/sectify/cache"
	"github.com/use-agent/sectify/models"
	"github.com/use-agent/sectify/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when the request opts in via max_age.
//  3. Scraper.DoScrape runs the full adaptive pipeline.
//  4. Store in cache, return 200.
//
// A 200 response can still carry a non-empty errors list: partial success is
// the normal degraded outcome, and only input-level failures reject the
// request outright.
func Scrape(sc *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Scrape ───────────────────────────────────────────────
		result, err := sc.DoScrape(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, result)
		}

		c.JSON(http.StatusOK, result)
	}
}

// respondError maps a PipelineError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var pipeErr *models.PipelineError
	if !errors.As(err, &pipeErr) {
		pipeErr = models.NewPipelineError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(pipeErr), models.ErrorResponse{
		Error: pipeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.PipelineError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
