package schema

import (
	"regexp"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/shopspring/decimal"

	"github.com/omnera-dev/omnera/model"
)

var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var tableShape = newShape("table", false,
	Property{"id", Identifier(false)},
	Property{"name", StringRule{Required: true, MinLength: 1, MaxLength: 63}},
	Property{"description", StringRule{}},
	Property{"fields", ArrayRule{}},
)

var fieldCommon = newShape("field", true,
	Property{"id", Identifier(false)},
	Property{"name", StringRule{Required: true, MaxLength: 63, Pattern: fieldNamePattern}},
	Property{"label", StringRule{}},
	Property{"required", BooleanRule{Default: Ptr(false)}},
	Property{"unique", BooleanRule{Default: Ptr(false)}},
	Property{"indexed", BooleanRule{Default: Ptr(false)}},
)

func numberProps(integer bool) []Property {
	return []Property{
		{"min", NumberRule{Integer: integer}},
		{"max", NumberRule{Integer: integer}},
		{"default", NumberRule{Integer: integer}},
	}
}

var fieldUnion = newUnion("field", []string{"type"}, fieldCommon,
	Variant{"single-line-text", newShape("single-line-text", false,
		Property{"maxLength", NumberRule{Integer: true, Min: Ptr(1.0), Max: Ptr(65535.0)}},
		Property{"default", StringRule{}},
	)},
	Variant{"long-text", newShape("long-text", false,
		Property{"default", StringRule{}},
	)},
	Variant{"phone-number", newShape("phone-number", false,
		Property{"default", StringRule{}},
	)},
	Variant{"email", newShape("email", false,
		Property{"default", StringRule{Format: "email"}},
	)},
	Variant{"url", newShape("url", false,
		Property{"default", StringRule{Format: "http_url"}},
	)},
	Variant{"integer", newShape("integer", false, numberProps(true)...)},
	Variant{"decimal", newShape("decimal", false, append([]Property{
		{"precision", NumberRule{Integer: true, Min: Ptr(0.0), Max: Ptr(10.0), Default: Ptr(2.0)}},
	}, numberProps(false)...)...)},
	Variant{"currency", newShape("currency", false, append([]Property{
		{"currency", StringRule{Format: "iso4217", Default: "USD"}},
	}, numberProps(false)...)...)},
	Variant{"percentage", newShape("percentage", false, numberProps(false)...)},
	Variant{"checkbox", newShape("checkbox", false,
		Property{"default", BooleanRule{Default: Ptr(false)}},
	)},
	Variant{"date", newShape("date", false,
		Property{"includeTime", BooleanRule{Default: Ptr(false)}},
		Property{"default", StringRule{Format: "datetime=2006-01-02"}},
	)},
	Variant{"single-select", newShape("single-select", false,
		Property{"options", StringListRule{Required: true, MinItems: 1}},
		Property{"default", StringRule{}},
	)},
	Variant{"relationship", newShape("relationship", false,
		Property{"relatedTable", Reference(true)},
		Property{"relatedField", StringRule{Pattern: fieldNamePattern}},
		Property{"relationType", EnumRule{
			Values:  []string{"one-to-one", "one-to-many", "many-to-one", "many-to-many"},
			Default: "many-to-one",
		}},
	)},
	Variant{"formula", newShape("formula", false,
		Property{"formula", StringRule{Required: true, MinLength: 1, Check: compileExpression}},
		Property{"resultType", EnumRule{Values: []string{"text", "number", "boolean"}, Default: "text"}},
	)},
)

// compileExpression checks that s is a valid expression over record
// fields. Unknown identifiers are allowed: they name fields.
func compileExpression(s string) error {
	_, err := expr.Compile(s, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	return err
}

func validateTable(raw any, path model.Path, pos int) *entity {
	e := newEntity(model.KindTable, path, pos)
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return e
	}
	e.identify(r)
	r.apply(tableShape)

	table := &model.Table{
		Name:        r.props.String("name"),
		Description: r.props.String("description"),
	}
	names, ids := nameSet{}, nameSet{}
	for i, item := range r.props.List("fields") {
		fp := path.Key("fields").Index(i)
		f, ok := validateField(item, fp, e)
		if dup := names.claim(f.Name, fp.Key("name"), "field"); dup != nil {
			e.add(*dup)
			ok = false
		}
		if dup := ids.claimID(rawString(item, "id"), fp.Key("id"), "field"); dup != nil {
			e.add(*dup)
			ok = false
		}
		table.Fields = append(table.Fields, f)
		e.fields = append(e.fields, fieldEntry{name: f.Name, valid: ok})
	}
	r.finish(tableShape.Closed, nil)
	e.add(r.issues...)
	e.data = table
	return e
}

// validateField validates one field of a table. Issues and references go to
// the owning table entity.
func validateField(raw any, path model.Path, e *entity) (model.Field, bool) {
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return model.Field{}, false
	}
	tag, ok := fieldUnion.read(r)
	if !ok {
		e.add(r.issues...)
		return model.Field{Name: r.peek("name")}, false
	}
	f := model.Field{
		ID:       r.props.String("id"),
		Name:     r.props.String("name"),
		Type:     model.FieldType(tag),
		Label:    r.props.String("label"),
		Required: r.props.Bool("required"),
		Unique:   r.props.Bool("unique"),
		Indexed:  r.props.Bool("indexed"),
	}
	f.Variant = fieldVariant(f.Type, r, e)
	e.add(r.issues...)
	return f, r.valid()
}

func fieldVariant(t model.FieldType, r *reader, e *entity) model.FieldVariant {
	p := r.props
	switch t {
	case model.FieldSingleLineText, model.FieldLongText, model.FieldPhoneNumber, model.FieldEmail, model.FieldURL:
		v := &model.TextField{MaxLength: p.IntPtr("maxLength"), Default: p.StringPtr("default")}
		if v.MaxLength != nil && v.Default != nil && len([]rune(*v.Default)) > *v.MaxLength {
			r.addf(r.path.Key("default"), model.CodeTooLong, "default is longer than maxLength %d", *v.MaxLength)
		}
		return v
	case model.FieldInteger, model.FieldDecimal, model.FieldCurrency, model.FieldPercentage:
		v := &model.NumberField{
			Min:     p.FloatPtr("min"),
			Max:     p.FloatPtr("max"),
			Default: p.FloatPtr("default"),
		}
		if t == model.FieldDecimal {
			v.Precision = p.IntPtr("precision")
		}
		if t == model.FieldCurrency {
			v.Currency = p.String("currency")
		}
		checkRange(r, v.Min, v.Max, v.Default)
		if v.Precision != nil && v.Default != nil {
			if places := -decimal.NewFromFloat(*v.Default).Exponent(); places > int32(*v.Precision) {
				r.addf(r.path.Key("default"), model.CodeOutOfRange,
					"default has %d decimal places, precision allows %d", places, *v.Precision)
			}
		}
		return v
	case model.FieldCheckbox:
		return &model.CheckboxField{Default: p.Bool("default")}
	case model.FieldDate:
		return &model.DateField{IncludeTime: p.Bool("includeTime"), Default: p.String("default")}
	case model.FieldSingleSelect:
		v := &model.SelectField{Options: p.Strings("options"), Default: p.String("default")}
		if v.Default != "" && p.Has("options") && !slices.Contains(v.Options, v.Default) {
			r.add(*enumIssue(r.path.Key("default"), v.Default, v.Options))
		}
		return v
	case model.FieldRelationship:
		v := &model.RelationshipField{
			RelatedTable: p.String("relatedTable"),
			RelatedField: p.String("relatedField"),
			RelationType: p.String("relationType"),
		}
		e.ref(r.path.Key("relatedTable"), model.KindTable, v.RelatedTable)
		if v.RelatedTable != "" && v.RelatedField != "" {
			e.ref(r.path.Key("relatedField"), model.KindField, fieldID(v.RelatedTable, v.RelatedField))
		}
		return v
	case model.FieldFormula:
		return &model.FormulaField{Formula: p.String("formula"), ResultType: p.String("resultType")}
	}
	panic("schema: field variant without builder: " + string(t))
}

// checkRange reports max below min and a default outside [min, max].
func checkRange(r *reader, lo, hi, def *float64) {
	if lo != nil && hi != nil && *hi < *lo {
		r.addf(r.path.Key("max"), model.CodeOutOfRange, "max %s is below min %s", formatNumber(*hi), formatNumber(*lo))
		return
	}
	if def == nil {
		return
	}
	if (lo != nil && *def < *lo) || (hi != nil && *def > *hi) {
		r.addf(r.path.Key("default"), model.CodeOutOfRange, "default %s is outside the allowed range", formatNumber(*def))
	}
}

// fieldID is the reference id of a table field.
func fieldID(tableID, field string) string {
	return tableID + "." + field
}
