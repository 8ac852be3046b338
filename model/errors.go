package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest      = "BAD_REQUEST"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrValidationError = "VALIDATION_ERROR"
	ErrNotLoaded       = "APPLICATION_NOT_LOADED"
	ErrInternalError   = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard error response envelope returned by the
// server. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes one located problem in a request or document.
type FieldError struct {
	Field    string `json:"path"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR carrying every issue of a
// failed resolution.
func NewValidationError(issues Issues) *ErrorEnvelope {
	return NewReportError(issues.FieldErrors())
}

// NewReportError returns a VALIDATION_ERROR for the located issues of a
// report. Only error-severity entries are counted in the message.
func NewReportError(details []FieldError) *ErrorEnvelope {
	errs := 0
	for _, d := range details {
		if d.Severity != string(SeverityWarning) {
			errs++
		}
	}
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: fmt.Sprintf("The application document has %d problem(s)", errs),
		Details: details,
	}
}

// NewNotLoadedError returns an APPLICATION_NOT_LOADED error.
func NewNotLoadedError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrNotLoaded,
		Message: "No valid application document is loaded",
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}
