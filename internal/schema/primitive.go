package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/omnera-dev/omnera/model"
)

// Rule validates a single leaf value. Rules never panic on user input.
type Rule interface {
	// check validates a present, non-null value.
	check(raw any, path model.Path) (any, *model.Issue)
	required() bool
	fallback() (any, bool)
}

// formats checks the Format tags of string rules. validator.Validate is safe
// for concurrent use.
var formats = validator.New()

var formatNames = map[string]string{
	"email":               "email address",
	"http_url":            "http(s) URL",
	"url":                 "URL",
	"semver":              "semantic version",
	"iso4217":             "ISO 4217 currency code",
	"hexcolor":            "hex color",
	"hostname|ip":         "host name or IP address",
	"datetime=2006-01-02": "date (YYYY-MM-DD)",
}

// Validate applies rule to v. It returns the typed value, or nil when the
// value is absent (or null) and the rule is optional without a default.
//
// A rule with a default is optional. A null optional value is treated as
// absent; a null required value is REQUIRED_BUT_NULL, distinct from
// REQUIRED_BUT_MISSING.
func Validate(v model.Value, rule Rule, path model.Path) (any, *model.Issue) {
	if !v.Present || v.Raw == nil {
		if d, ok := rule.fallback(); ok {
			return d, nil
		}
		if !rule.required() {
			return nil, nil
		}
		if v.Present {
			return nil, issuef(path, model.CodeRequiredButNull, "%s must not be null", subject(path))
		}
		return nil, issuef(path, model.CodeRequiredButMissing, "%s is required", subject(path))
	}
	return rule.check(v.Raw, path)
}

// StringRule validates strings. Zero values disable a constraint. Format
// names a go-playground/validator tag; Check runs last and reports
// INVALID_FORMAT with its error.
type StringRule struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Enum      []string
	Format    string
	Check     func(string) error
	Default   string
}

func (r StringRule) required() bool { return r.Required }

func (r StringRule) fallback() (any, bool) {
	if r.Default == "" {
		return nil, false
	}
	return r.Default, true
}

func (r StringRule) check(raw any, path model.Path) (any, *model.Issue) {
	s, ok := raw.(string)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be a string, got %s", subject(path), typeName(raw))
	}
	n := utf8.RuneCountInString(s)
	if r.MinLength > 0 && n < r.MinLength {
		return nil, issuef(path, model.CodeTooShort, "%s must be at least %d character(s), got %d", subject(path), r.MinLength, n)
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		return nil, issuef(path, model.CodeTooLong, "%s must be at most %d character(s), got %d", subject(path), r.MaxLength, n)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(s) {
		return nil, issuef(path, model.CodeInvalidFormat, "%s %q does not match pattern %s", subject(path), s, r.Pattern)
	}
	if len(r.Enum) > 0 && !slices.Contains(r.Enum, s) {
		return nil, enumIssue(path, s, r.Enum)
	}
	if r.Format != "" {
		if err := formats.Var(s, r.Format); err != nil {
			name := formatNames[r.Format]
			if name == "" {
				name = r.Format
			}
			return nil, issuef(path, model.CodeInvalidFormat, "%s %q is not a valid %s", subject(path), s, name)
		}
	}
	if r.Check != nil {
		if err := r.Check(s); err != nil {
			return nil, issuef(path, model.CodeInvalidFormat, "%s %q is invalid: %s", subject(path), s, firstLine(err.Error()))
		}
	}
	return s, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Identifier returns the rule for user-supplied entity ids. A present but
// empty identifier is always invalid.
func Identifier(required bool) StringRule {
	return StringRule{Required: required, Pattern: identifierPattern}
}

// Reference returns the rule for a property holding the id of another
// entity. Existence is checked later by ResolveReferences.
func Reference(required bool) StringRule {
	return StringRule{Required: required, MinLength: 1}
}

// EnumRule validates a string drawn from Values. An absent value with a
// Default yields the default without an issue.
type EnumRule struct {
	Required bool
	Values   []string
	Default  string
}

func (r EnumRule) required() bool { return r.Required }

func (r EnumRule) fallback() (any, bool) {
	if r.Default == "" {
		return nil, false
	}
	return r.Default, true
}

func (r EnumRule) check(raw any, path model.Path) (any, *model.Issue) {
	return StringRule{Enum: r.Values}.check(raw, path)
}

// NumberRule validates numbers. Bounds are inclusive. MultipleOf is checked
// in exact decimal arithmetic. Values are returned as float64.
type NumberRule struct {
	Required   bool
	Min        *float64
	Max        *float64
	MultipleOf float64
	Integer    bool
	Default    *float64
}

func (r NumberRule) required() bool { return r.Required }

func (r NumberRule) fallback() (any, bool) {
	if r.Default == nil {
		return nil, false
	}
	return *r.Default, true
}

func (r NumberRule) check(raw any, path model.Path) (any, *model.Issue) {
	f, exact, ok := numberOf(raw)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be a number, got %s", subject(path), typeName(raw))
	}
	if r.Integer && f != math.Trunc(f) {
		return nil, issuef(path, model.CodeInvalidType, "%s must be an integer, got %s", subject(path), exact)
	}
	if r.Min != nil && f < *r.Min {
		return nil, issuef(path, model.CodeOutOfRange, "%s must be at least %s, got %s", subject(path), formatNumber(*r.Min), exact)
	}
	if r.Max != nil && f > *r.Max {
		return nil, issuef(path, model.CodeOutOfRange, "%s must be at most %s, got %s", subject(path), formatNumber(*r.Max), exact)
	}
	if r.MultipleOf > 0 {
		step := decimal.NewFromFloat(r.MultipleOf)
		if !exact.Mod(step).IsZero() {
			return nil, issuef(path, model.CodeOutOfRange, "%s must be a multiple of %s, got %s", subject(path), step, exact)
		}
	}
	return f, nil
}

// BooleanRule type-checks booleans.
type BooleanRule struct {
	Required bool
	Default  *bool
}

func (r BooleanRule) required() bool { return r.Required }

func (r BooleanRule) fallback() (any, bool) {
	if r.Default == nil {
		return nil, false
	}
	return *r.Default, true
}

func (r BooleanRule) check(raw any, path model.Path) (any, *model.Issue) {
	b, ok := raw.(bool)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be a boolean, got %s", subject(path), typeName(raw))
	}
	return b, nil
}

// ArrayRule checks that a value is an array with at least MinItems
// elements. Elements are validated by the caller.
type ArrayRule struct {
	Required bool
	MinItems int
}

func (r ArrayRule) required() bool { return r.Required }

func (r ArrayRule) fallback() (any, bool) { return nil, false }

func (r ArrayRule) check(raw any, path model.Path) (any, *model.Issue) {
	items, ok := raw.([]any)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be an array, got %s", subject(path), typeName(raw))
	}
	if len(items) < r.MinItems {
		return nil, issuef(path, model.CodeTooShort, "%s must contain at least %d item(s), got %d", subject(path), r.MinItems, len(items))
	}
	return items, nil
}

// StringListRule validates a non-nested array of distinct strings.
type StringListRule struct {
	Required bool
	MinItems int
}

func (r StringListRule) required() bool { return r.Required }

func (r StringListRule) fallback() (any, bool) { return nil, false }

func (r StringListRule) check(raw any, path model.Path) (any, *model.Issue) {
	v, issue := ArrayRule{MinItems: r.MinItems}.check(raw, path)
	if issue != nil {
		return nil, issue
	}
	items := v.([]any)
	out := make([]string, len(items))
	first := make(map[string]int, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, issuef(path.Index(i), model.CodeInvalidType, "%s must be a string, got %s", subject(path.Index(i)), typeName(item))
		}
		if j, dup := first[s]; dup {
			return nil, issuef(path.Index(i), model.CodeDuplicateName, "%q is already listed at %s", s, path.Index(j))
		}
		first[s] = i
		out[i] = s
	}
	return out, nil
}

// ObjectRule checks that a value is an object. Members are validated by the
// caller.
type ObjectRule struct {
	Required bool
}

func (r ObjectRule) required() bool { return r.Required }

func (r ObjectRule) fallback() (any, bool) { return nil, false }

func (r ObjectRule) check(raw any, path model.Path) (any, *model.Issue) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be an object, got %s", subject(path), typeName(raw))
	}
	return obj, nil
}

// AnyRule accepts any JSON value.
type AnyRule struct {
	Required bool
}

func (r AnyRule) required() bool { return r.Required }

func (r AnyRule) fallback() (any, bool) { return nil, false }

func (r AnyRule) check(raw any, _ model.Path) (any, *model.Issue) {
	return raw, nil
}

// Ptr returns a pointer to v. It keeps rule literals short.
func Ptr[T any](v T) *T {
	return &v
}

func issuef(path model.Path, code model.Code, format string, args ...any) *model.Issue {
	i := model.NewIssue(path, code, format, args...)
	return &i
}

func enumIssue(path model.Path, got string, allowed []string) *model.Issue {
	msg := fmt.Sprintf("%s must be one of [%s], got %q", subject(path), strings.Join(allowed, ", "), got)
	if s, ok := closest(got, allowed); ok {
		msg += fmt.Sprintf("; did you mean %q?", s)
	}
	i := model.NewIssue(path, model.CodeInvalidEnumValue, "%s", msg)
	return &i
}

// subject names the value at path in messages: its last key, or the whole
// path when it ends in an index.
func subject(path model.Path) string {
	last, ok := path.Last()
	if !ok {
		return "document"
	}
	if last.IsIndex {
		return path.String()
	}
	return last.Key
}

// numberOf accepts the number representations JSON and YAML decoders
// produce. The decimal form keeps json.Number input exact.
func numberOf(raw any) (float64, decimal.Decimal, bool) {
	switch n := raw.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, decimal.Zero, false
		}
		return n, decimal.NewFromFloat(n), true
	case float32:
		return numberOf(float64(n))
	case int:
		return float64(n), decimal.NewFromInt(int64(n)), true
	case int64:
		return float64(n), decimal.NewFromInt(n), true
	case uint64:
		d := decimal.RequireFromString(strconv.FormatUint(n, 10))
		return d.InexactFloat64(), d, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, decimal.Zero, false
		}
		return d.InexactFloat64(), d, true
	}
	return 0, decimal.Zero, false
}

func formatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, _, ok := numberOf(raw); ok {
		return "number"
	}
	return fmt.Sprintf("%T", raw)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
