package models

import "fmt"

// Phase tags where in the pipeline a recoverable failure happened.
type Phase string

const (
	PhaseFetch    Phase = "fetch"
	PhaseRender   Phase = "render"
	PhaseInteract Phase = "interact"
	PhaseSegment  Phase = "segment"
	PhaseClassify Phase = "classify"
	PhaseSanitize Phase = "sanitize"
)

// ScrapeError is a recoverable, phase-tagged failure embedded in a
// ScrapeResult. It never halts the pipeline: the coordinator appends it and
// continues with the best available state.
type ScrapeError struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeFetch        = "FETCH_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the API body returned when a request is rejected outright
// (invalid input, auth failure, rate limit). Recoverable scrape failures are
// reported inside ScrapeResult.Errors instead.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// PipelineError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PipelineError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *PipelineError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
