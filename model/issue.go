package model

import (
	"fmt"
	"sort"
)

// Code is a stable machine-readable validation error code.
type Code string

// Validation codes. The set is closed: new rules map onto an existing code.
const (
	CodeRequiredButMissing           Code = "REQUIRED_BUT_MISSING"
	CodeRequiredButNull              Code = "REQUIRED_BUT_NULL"
	CodeInvalidType                  Code = "INVALID_TYPE"
	CodeInvalidFormat                Code = "INVALID_FORMAT"
	CodeInvalidEnumValue             Code = "INVALID_ENUM_VALUE"
	CodeTooShort                     Code = "TOO_SHORT"
	CodeTooLong                      Code = "TOO_LONG"
	CodeOutOfRange                   Code = "OUT_OF_RANGE"
	CodeUnknownVariant               Code = "UNKNOWN_VARIANT"
	CodeUnexpectedPropertyForVariant Code = "UNEXPECTED_PROPERTY_FOR_VARIANT"
	CodeUnknownProperty              Code = "UNKNOWN_PROPERTY"
	CodeDuplicateName                Code = "DUPLICATE_NAME"
	CodeDuplicateID                  Code = "DUPLICATE_ID"
	CodeDanglingReference            Code = "DANGLING_REFERENCE"
	CodeReferenceToInvalidEntity     Code = "REFERENCE_TO_INVALID_ENTITY"
)

// Severity distinguishes blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one detected problem in a document.
type Issue struct {
	Path     Path     `json:"path"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// IsError reports whether the issue blocks resolution.
func (i Issue) IsError() bool {
	return i.Severity != SeverityWarning
}

// NewIssue returns an error-severity issue.
func NewIssue(path Path, code Code, format string, args ...any) Issue {
	return Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// NewWarning returns a warning-severity issue.
func NewWarning(path Path, code Code, format string, args ...any) Issue {
	return Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

// Issues is an ordered list of issues.
type Issues []Issue

// HasErrors reports whether any issue has error severity.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues, in order.
func (is Issues) Errors() Issues {
	var out Issues
	for _, i := range is {
		if i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues, in order.
func (is Issues) Warnings() Issues {
	var out Issues
	for _, i := range is {
		if !i.IsError() {
			out = append(out, i)
		}
	}
	return out
}

// Sorted returns a copy ordered by path. Issues at the same path keep their
// relative order.
func (is Issues) Sorted() Issues {
	out := make(Issues, len(is))
	copy(out, is)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Path.Compare(out[b].Path) < 0
	})
	return out
}

// Codes returns the code of every issue, in order. Handy in tests and logs.
func (is Issues) Codes() []Code {
	out := make([]Code, len(is))
	for i, issue := range is {
		out[i] = issue.Code
	}
	return out
}

// FieldErrors converts issues to the FieldError details of an ErrorEnvelope.
func (is Issues) FieldErrors() []FieldError {
	out := make([]FieldError, len(is))
	for i, issue := range is {
		out[i] = FieldError{
			Field:    issue.Path.String(),
			Code:     string(issue.Code),
			Message:  issue.Message,
			Severity: string(issue.Severity),
		}
	}
	return out
}
