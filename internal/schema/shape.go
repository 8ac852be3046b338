package schema

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/omnera-dev/omnera/model"
)

// Property binds a rule to an object key.
type Property struct {
	Name string
	Rule Rule
}

// Shape is the declarative rule set of an entity kind. Unknown keys are
// warnings unless Closed is set.
type Shape struct {
	Name       string
	Properties []Property
	Closed     bool
}

// newShape checks a shape definition. Malformed shapes are programming
// errors and panic at package init.
func newShape(name string, closed bool, props ...Property) *Shape {
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		if p.Name == "" || p.Rule == nil {
			panic(fmt.Sprintf("schema: shape %s has a property without name or rule", name))
		}
		if seen[p.Name] {
			panic(fmt.Sprintf("schema: shape %s declares %q twice", name, p.Name))
		}
		seen[p.Name] = true
	}
	return &Shape{Name: name, Properties: props, Closed: closed}
}

func (s *Shape) has(key string) bool {
	for _, p := range s.Properties {
		if p.Name == key {
			return true
		}
	}
	return false
}

// Props holds the validated values of an object. Keys that were absent or
// invalid are missing, so the getters return zero-value placeholders.
type Props map[string]any

func (p Props) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p Props) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Props) StringPtr(key string) *string {
	s, ok := p[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func (p Props) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p Props) Float(key string) (float64, bool) {
	f, ok := p[key].(float64)
	return f, ok
}

func (p Props) FloatPtr(key string) *float64 {
	f, ok := p[key].(float64)
	if !ok {
		return nil
	}
	return &f
}

func (p Props) IntPtr(key string) *int {
	f, ok := p[key].(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func (p Props) Int(key string) int {
	f, _ := p[key].(float64)
	return int(f)
}

func (p Props) Strings(key string) []string {
	s, _ := p[key].([]string)
	return s
}

func (p Props) List(key string) []any {
	l, _ := p[key].([]any)
	return l
}

func (p Props) Object(key string) map[string]any {
	o, _ := p[key].(map[string]any)
	return o
}

// reader validates one JSON object property by property, accumulating
// issues and remembering which keys it consumed.
type reader struct {
	obj    map[string]any
	path   model.Path
	props  Props
	seen   map[string]bool
	issues model.Issues
}

// readObject returns a reader for raw, or an INVALID_TYPE issue when raw is
// not an object.
func readObject(raw any, path model.Path) (*reader, *model.Issue) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, issuef(path, model.CodeInvalidType, "%s must be an object, got %s", subject(path), typeName(raw))
	}
	return newReader(obj, path), nil
}

func newReader(obj map[string]any, path model.Path) *reader {
	return &reader{
		obj:   obj,
		path:  path,
		props: make(Props, len(obj)),
		seen:  make(map[string]bool, len(obj)),
	}
}

// apply validates every property of s, even after earlier failures.
func (r *reader) apply(s *Shape) {
	for _, p := range s.Properties {
		r.field(p.Name, p.Rule)
	}
}

// field validates a single key and stores its typed value.
func (r *reader) field(key string, rule Rule) {
	v, issue := Validate(r.value(key), rule, r.path.Key(key))
	if issue != nil {
		r.add(*issue)
		return
	}
	if v != nil {
		r.props[key] = v
	}
}

// value returns the raw value of key and marks it consumed.
func (r *reader) value(key string) model.Value {
	r.seen[key] = true
	return model.Lookup(r.obj, key)
}

// peek returns a string value without consuming it or validating it.
func (r *reader) peek(key string) string {
	s, _ := r.obj[key].(string)
	return s
}

func (r *reader) add(issues ...model.Issue) {
	r.issues = append(r.issues, issues...)
}

func (r *reader) addf(path model.Path, code model.Code, format string, args ...any) {
	r.add(model.NewIssue(path, code, format, args...))
}

// finish reports keys no rule consumed, in key order. Keys owned by a
// sibling variant are reported as UNEXPECTED_PROPERTY_FOR_VARIANT.
func (r *reader) finish(closed bool, foreign func(string) (string, bool)) {
	var unknown []string
	for k := range r.obj {
		if !r.seen[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		path := r.path.Key(k)
		if foreign != nil {
			if owner, ok := foreign(k); ok {
				r.add(model.NewWarning(path, model.CodeUnexpectedPropertyForVariant,
					"%s belongs to the %s variant and is ignored here", k, owner))
				continue
			}
		}
		if closed {
			r.addf(path, model.CodeUnknownProperty, "unknown property %s", k)
			continue
		}
		r.add(model.NewWarning(path, model.CodeUnknownProperty, "unknown property %s is ignored", k))
	}
}

func (r *reader) valid() bool {
	return !r.issues.HasErrors()
}

// Variant is one member of a Union. Tag joins the discriminator values with
// ":" for unions over more than one discriminator.
type Variant struct {
	Tag   string
	Shape *Shape
}

// Union selects a variant shape by the value of one or more discriminator
// properties, then validates strictly against it.
type Union struct {
	Name           string
	Discriminators []string
	Common         *Shape
	Variants       []Variant

	byTag map[string]*Shape
	// owners maps a variant-only property to the first variant declaring it.
	owners map[string]string
}

func newUnion(name string, discriminators []string, common *Shape, variants ...Variant) *Union {
	u := &Union{
		Name:           name,
		Discriminators: discriminators,
		Common:         common,
		Variants:       variants,
		byTag:          make(map[string]*Shape, len(variants)),
		owners:         make(map[string]string),
	}
	for _, v := range variants {
		if len(strings.Split(v.Tag, ":")) != len(discriminators) {
			panic(fmt.Sprintf("schema: union %s variant %q does not match its discriminators", name, v.Tag))
		}
		if _, dup := u.byTag[v.Tag]; dup {
			panic(fmt.Sprintf("schema: union %s declares variant %q twice", name, v.Tag))
		}
		u.byTag[v.Tag] = v.Shape
		for _, p := range v.Shape.Properties {
			if common != nil && common.has(p.Name) {
				panic(fmt.Sprintf("schema: union %s variant %q redeclares common property %q", name, v.Tag, p.Name))
			}
			if _, ok := u.owners[p.Name]; !ok {
				u.owners[p.Name] = v.Tag
			}
		}
	}
	return u
}

// Tags returns the variant tags in declaration order.
func (u *Union) Tags() []string {
	out := make([]string, len(u.Variants))
	for i, v := range u.Variants {
		out[i] = v.Tag
	}
	return out
}

// options returns the distinct discriminator values valid at level, given
// the values already chosen for earlier levels.
func (u *Union) options(level int, chosen []string) []string {
	var out []string
	for _, v := range u.Variants {
		parts := strings.Split(v.Tag, ":")
		if !slices.Equal(parts[:level], chosen) || slices.Contains(out, parts[level]) {
			continue
		}
		out = append(out, parts[level])
	}
	return out
}

// read resolves the discriminators of the object behind r and validates it
// against the selected variant. When a discriminator is missing or unknown
// it reports exactly one issue and validates nothing else.
func (u *Union) read(r *reader) (string, bool) {
	var chosen []string
	for level, key := range u.Discriminators {
		path := r.path.Key(key)
		v := r.value(key)
		switch {
		case !v.Present:
			r.addf(path, model.CodeRequiredButMissing, "%s is required", key)
			return "", false
		case v.Raw == nil:
			r.addf(path, model.CodeRequiredButNull, "%s must not be null", key)
			return "", false
		}
		valid := u.options(level, chosen)
		s, ok := v.Raw.(string)
		if !ok || !slices.Contains(valid, s) {
			r.add(unknownVariant(path, u.Name, v.Raw, valid))
			return "", false
		}
		chosen = append(chosen, s)
	}
	tag := strings.Join(chosen, ":")
	shape := u.byTag[tag]
	if u.Common != nil {
		r.apply(u.Common)
	}
	r.apply(shape)
	closed := shape.Closed || (u.Common != nil && u.Common.Closed)
	r.finish(closed, func(key string) (string, bool) {
		owner, ok := u.owners[key]
		return owner, ok && owner != tag
	})
	return tag, true
}

func unknownVariant(path model.Path, union string, got any, valid []string) model.Issue {
	s, isString := got.(string)
	shown := fmt.Sprintf("%q", s)
	if !isString {
		shown = "a " + typeName(got)
	}
	msg := fmt.Sprintf("unknown %s %s %s; expected one of [%s]", union, subject(path), shown, strings.Join(valid, ", "))
	if isString {
		if c, ok := closest(s, valid); ok {
			msg += fmt.Sprintf("; did you mean %q?", c)
		}
	}
	return model.NewIssue(path, model.CodeUnknownVariant, "%s", msg)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
