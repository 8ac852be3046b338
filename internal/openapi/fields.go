package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/omnera-dev/omnera/model"
)

// RecordSchema returns the JSON schema of one record of t: a read-only
// string id plus one property per field. Required fields are required.
func RecordSchema(t model.Table) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Title = t.Name
	s.Description = t.Description

	id := openapi3.NewStringSchema()
	id.ReadOnly = true
	s.WithProperty("id", id)

	var required []string
	for _, f := range t.Fields {
		s.WithProperty(f.Name, FieldSchema(f))
		if f.Required {
			required = append(required, f.Name)
		}
	}
	s.Required = required
	return s
}

// FieldSchema maps a field to the schema of its values.
func FieldSchema(f model.Field) *openapi3.Schema {
	s := valueSchema(f)
	if f.Label != "" {
		s.Title = f.Label
	}
	return s
}

func valueSchema(f model.Field) *openapi3.Schema {
	switch v := f.Variant.(type) {
	case *model.TextField:
		s := openapi3.NewStringSchema()
		switch f.Type {
		case model.FieldEmail:
			s.Format = "email"
		case model.FieldURL:
			s.Format = "uri"
		}
		if v.MaxLength != nil {
			s.WithMaxLength(int64(*v.MaxLength))
		}
		if v.Default != nil {
			s.Default = *v.Default
		}
		return s

	case *model.NumberField:
		var s *openapi3.Schema
		if f.Type == model.FieldInteger {
			s = openapi3.NewIntegerSchema()
		} else {
			s = openapi3.NewFloat64Schema()
		}
		if v.Min != nil {
			s.WithMin(*v.Min)
		}
		if v.Max != nil {
			s.WithMax(*v.Max)
		}
		if v.Default != nil {
			s.Default = *v.Default
		}
		if f.Type == model.FieldCurrency && v.Currency != "" {
			s.Description = "Amount in " + v.Currency
		}
		return s

	case *model.CheckboxField:
		s := openapi3.NewBoolSchema()
		s.Default = v.Default
		return s

	case *model.DateField:
		if v.IncludeTime {
			return openapi3.NewDateTimeSchema()
		}
		s := openapi3.NewStringSchema()
		s.Format = "date"
		return s

	case *model.SelectField:
		enum := make([]any, len(v.Options))
		for i, o := range v.Options {
			enum[i] = o
		}
		s := openapi3.NewStringSchema().WithEnum(enum...)
		if v.Default != "" {
			s.Default = v.Default
		}
		return s

	case *model.RelationshipField:
		ref := openapi3.NewStringSchema()
		ref.Description = fmt.Sprintf("Id of a %s record", v.RelatedTable)
		if v.RelationType == "one-to-many" || v.RelationType == "many-to-many" {
			list := openapi3.NewArraySchema().WithItems(ref)
			list.Description = fmt.Sprintf("Ids of %s records", v.RelatedTable)
			return list
		}
		return ref

	case *model.FormulaField:
		var s *openapi3.Schema
		switch v.ResultType {
		case "number":
			s = openapi3.NewFloat64Schema()
		case "boolean":
			s = openapi3.NewBoolSchema()
		default:
			s = openapi3.NewStringSchema()
		}
		s.ReadOnly = true
		s.Description = "Computed: " + v.Formula
		return s
	}
	return openapi3.NewSchema()
}
