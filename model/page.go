package model

// Page layouts.
const (
	LayoutList      = "list"
	LayoutDetail    = "detail"
	LayoutForm      = "form"
	LayoutDashboard = "dashboard"
	LayoutCustom    = "custom"
)

// Page is a declared UI page.
type Page struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Layout      string    `json:"layout"`
	Table       string    `json:"table,omitempty"`
	RedirectTo  string    `json:"redirectTo,omitempty"`
	Inputs      []Input   `json:"inputs,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
}

// InputType discriminates the Input variants.
type InputType string

const (
	InputText     InputType = "text"
	InputTextarea InputType = "textarea"
	InputEmail    InputType = "email"
	InputNumber   InputType = "number"
	InputCheckbox InputType = "checkbox"
	InputSelect   InputType = "select"
	InputDate     InputType = "date"
	InputHidden   InputType = "hidden"
)

// Input is one form control of a page. Variant is nil for the types that
// carry no payload (email, checkbox, date).
type Input struct {
	Name        string       `json:"name"`
	Type        InputType    `json:"type"`
	Label       string       `json:"label,omitempty"`
	Required    bool         `json:"required"`
	Placeholder string       `json:"placeholder,omitempty"`
	Field       string       `json:"field,omitempty"`
	Variant     InputVariant `json:"-"`
}

type inputCommon Input

// MarshalJSON flattens the variant payload into the input object.
func (in Input) MarshalJSON() ([]byte, error) {
	return marshalFlat(inputCommon(in), in.Variant)
}

// InputVariant is implemented by every input payload type.
type InputVariant interface {
	inputVariant()
}

// TextInput backs text and textarea.
type TextInput struct {
	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
}

type NumberInput struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

type SelectInput struct {
	Options []string `json:"options"`
}

type HiddenInput struct {
	Value string `json:"value"`
}

func (*TextInput) inputVariant()   {}
func (*NumberInput) inputVariant() {}
func (*SelectInput) inputVariant() {}
func (*HiddenInput) inputVariant() {}

// SectionType discriminates the Section variants.
type SectionType string

const (
	SectionHeading   SectionType = "heading"
	SectionParagraph SectionType = "paragraph"
	SectionImage     SectionType = "image"
	SectionLink      SectionType = "link"
)

// Section is one content block of a page.
type Section struct {
	Type    SectionType    `json:"type"`
	Variant SectionVariant `json:"-"`
}

type sectionCommon Section

// MarshalJSON flattens the variant payload into the section object.
func (s Section) MarshalJSON() ([]byte, error) {
	return marshalFlat(sectionCommon(s), s.Variant)
}

// SectionVariant is implemented by every section payload type.
type SectionVariant interface {
	sectionVariant()
}

type HeadingSection struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type ParagraphSection struct {
	Text string `json:"text"`
}

type ImageSection struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// LinkSection points either at an external URL or at another page.
type LinkSection struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
	Page  string `json:"page,omitempty"`
}

func (*HeadingSection) sectionVariant()   {}
func (*ParagraphSection) sectionVariant() {}
func (*ImageSection) sectionVariant()     {}
func (*LinkSection) sectionVariant()      {}
