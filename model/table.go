package model

// FieldType discriminates the Field variants.
type FieldType string

const (
	FieldSingleLineText FieldType = "single-line-text"
	FieldLongText       FieldType = "long-text"
	FieldPhoneNumber    FieldType = "phone-number"
	FieldEmail          FieldType = "email"
	FieldURL            FieldType = "url"
	FieldInteger        FieldType = "integer"
	FieldDecimal        FieldType = "decimal"
	FieldCurrency       FieldType = "currency"
	FieldPercentage     FieldType = "percentage"
	FieldCheckbox       FieldType = "checkbox"
	FieldDate           FieldType = "date"
	FieldSingleSelect   FieldType = "single-select"
	FieldRelationship   FieldType = "relationship"
	FieldFormula        FieldType = "formula"
)

// Table is a declared data table.
type Table struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Field returns the field with the given name.
func (t Table) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field is one column of a table. Variant holds the type-specific payload
// and is one of *TextField, *NumberField, *CheckboxField, *DateField,
// *SelectField, *RelationshipField or *FormulaField.
type Field struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name"`
	Type     FieldType    `json:"type"`
	Label    string       `json:"label"`
	Required bool         `json:"required"`
	Unique   bool         `json:"unique"`
	Indexed  bool         `json:"indexed"`
	Variant  FieldVariant `json:"-"`
}

type fieldCommon Field

// MarshalJSON flattens the variant payload into the field object.
func (f Field) MarshalJSON() ([]byte, error) {
	return marshalFlat(fieldCommon(f), f.Variant)
}

// FieldVariant is implemented by every field payload type.
type FieldVariant interface {
	fieldVariant()
}

// TextField backs single-line-text, long-text, phone-number, email and url.
type TextField struct {
	MaxLength *int    `json:"maxLength,omitempty"`
	Default   *string `json:"default,omitempty"`
}

// NumberField backs integer, decimal, currency and percentage.
type NumberField struct {
	Precision *int     `json:"precision,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Default   *float64 `json:"default,omitempty"`
}

type CheckboxField struct {
	Default bool `json:"default"`
}

type DateField struct {
	IncludeTime bool   `json:"includeTime"`
	Default     string `json:"default,omitempty"`
}

type SelectField struct {
	Options []string `json:"options"`
	Default string   `json:"default,omitempty"`
}

// RelationshipField links a table to another table, or to itself.
type RelationshipField struct {
	RelatedTable string `json:"relatedTable"`
	RelatedField string `json:"relatedField,omitempty"`
	RelationType string `json:"relationType"`
}

// FormulaField holds an expression computed from the other fields of a
// record.
type FormulaField struct {
	Formula    string `json:"formula"`
	ResultType string `json:"resultType"`
}

func (*TextField) fieldVariant()         {}
func (*NumberField) fieldVariant()       {}
func (*CheckboxField) fieldVariant()     {}
func (*DateField) fieldVariant()         {}
func (*SelectField) fieldVariant()       {}
func (*RelationshipField) fieldVariant() {}
func (*FormulaField) fieldVariant()      {}
