package model

import "encoding/json"

// Result is the outcome of resolving a document: either a Success carrying
// the Application or a Failure carrying every issue found. A Success may
// still carry warnings.
type Result struct {
	app    *Application
	issues Issues
}

// Success returns a successful result. Warnings must not contain errors.
func Success(app *Application, warnings Issues) Result {
	if app == nil {
		panic("model: Success requires an application")
	}
	if warnings.HasErrors() {
		panic("model: Success cannot carry error issues")
	}
	return Result{app: app, issues: warnings.Sorted()}
}

// Failure returns a failed result. At least one issue must be an error.
func Failure(issues Issues) Result {
	if !issues.HasErrors() {
		panic("model: Failure requires at least one error issue")
	}
	return Result{issues: issues.Sorted()}
}

// OK reports whether the result is a Success.
func (r Result) OK() bool {
	return r.app != nil
}

// Application returns the resolved application, or nil on failure.
func (r Result) Application() *Application {
	return r.app
}

// Issues returns every issue sorted by path. On success these are warnings.
func (r Result) Issues() Issues {
	return r.issues
}

// Warnings returns the warning-severity issues.
func (r Result) Warnings() Issues {
	return r.issues.Warnings()
}

// Report is the serializable form of a Result. It is what the HTTP API
// returns and what the result cache stores.
type Report struct {
	Valid       bool            `json:"valid"`
	Checksum    string          `json:"checksum,omitempty"`
	Application json.RawMessage `json:"application,omitempty"`
	Issues      []FieldError    `json:"issues,omitempty"`
}

// NewReport renders r into a Report.
func NewReport(r Result, checksum string) (*Report, error) {
	rep := &Report{Valid: r.OK(), Checksum: checksum}
	if len(r.issues) > 0 {
		rep.Issues = r.issues.FieldErrors()
	}
	if r.app != nil {
		data, err := json.Marshal(r.app)
		if err != nil {
			return nil, err
		}
		rep.Application = data
	}
	return rep, nil
}
