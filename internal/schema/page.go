package schema

import (
	"regexp"

	"github.com/omnera-dev/omnera/model"
)

var urlPathPattern = regexp.MustCompile(`^/[A-Za-z0-9/_-]*$`)

var pageShape = newShape("page", false,
	Property{"id", Identifier(false)},
	Property{"name", StringRule{Required: true, MinLength: 1, MaxLength: 63}},
	Property{"path", StringRule{Pattern: urlPathPattern}},
	Property{"title", StringRule{}},
	Property{"description", StringRule{}},
	Property{"layout", EnumRule{
		Values:  []string{model.LayoutList, model.LayoutDetail, model.LayoutForm, model.LayoutDashboard, model.LayoutCustom},
		Default: model.LayoutCustom,
	}},
	Property{"table", Reference(false)},
	Property{"redirectTo", Reference(false)},
	Property{"inputs", ArrayRule{}},
	Property{"sections", ArrayRule{}},
)

// Layouts that display records and so need a table.
var tableLayouts = map[string]bool{
	model.LayoutList:   true,
	model.LayoutDetail: true,
	model.LayoutForm:   true,
}

var inputCommon = newShape("input", false,
	Property{"name", StringRule{Required: true, MaxLength: 63, Pattern: fieldNamePattern}},
	Property{"label", StringRule{}},
	Property{"required", BooleanRule{Default: Ptr(false)}},
	Property{"placeholder", StringRule{}},
	Property{"field", StringRule{Pattern: fieldNamePattern}},
)

var inputUnion = newUnion("input", []string{"type"}, inputCommon,
	Variant{"text", newShape("text", false,
		Property{"minLength", NumberRule{Integer: true, Min: Ptr(0.0)}},
		Property{"maxLength", NumberRule{Integer: true, Min: Ptr(1.0)}},
	)},
	Variant{"textarea", newShape("textarea", false,
		Property{"minLength", NumberRule{Integer: true, Min: Ptr(0.0)}},
		Property{"maxLength", NumberRule{Integer: true, Min: Ptr(1.0)}},
	)},
	Variant{"email", newShape("email", false)},
	Variant{"number", newShape("number", false,
		Property{"min", NumberRule{}},
		Property{"max", NumberRule{}},
		Property{"step", NumberRule{}},
	)},
	Variant{"checkbox", newShape("checkbox", false)},
	Variant{"select", newShape("select", false,
		Property{"options", StringListRule{Required: true, MinItems: 1}},
	)},
	Variant{"date", newShape("date", false)},
	Variant{"hidden", newShape("hidden", false,
		Property{"value", StringRule{Required: true}},
	)},
)

var sectionUnion = newUnion("section", []string{"type"}, nil,
	Variant{"heading", newShape("heading", false,
		Property{"text", StringRule{Required: true, MinLength: 1}},
		Property{"level", NumberRule{Integer: true, Min: Ptr(1.0), Max: Ptr(6.0), Default: Ptr(2.0)}},
	)},
	Variant{"paragraph", newShape("paragraph", false,
		Property{"text", StringRule{Required: true}},
	)},
	Variant{"image", newShape("image", false,
		Property{"src", StringRule{Required: true, Format: "http_url"}},
		Property{"alt", StringRule{}},
	)},
	Variant{"link", newShape("link", false,
		Property{"label", StringRule{Required: true, MinLength: 1}},
		Property{"href", StringRule{Format: "http_url"}},
		Property{"page", Reference(false)},
	)},
)

func validatePage(raw any, path model.Path, pos int) *entity {
	e := newEntity(model.KindPage, path, pos)
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return e
	}
	e.identify(r)
	r.apply(pageShape)

	page := &model.Page{
		Name:        r.props.String("name"),
		Path:        r.props.String("path"),
		Title:       r.props.String("title"),
		Description: r.props.String("description"),
		Layout:      r.props.String("layout"),
		Table:       r.props.String("table"),
		RedirectTo:  r.props.String("redirectTo"),
	}
	if tableLayouts[page.Layout] {
		switch v := model.Lookup(r.obj, "table"); {
		case !v.Present:
			r.addf(path.Key("table"), model.CodeRequiredButMissing, "table is required for the %s layout", page.Layout)
		case v.Raw == nil:
			r.addf(path.Key("table"), model.CodeRequiredButNull, "table must not be null for the %s layout", page.Layout)
		}
	}
	e.ref(path.Key("table"), model.KindTable, page.Table)
	e.ref(path.Key("redirectTo"), model.KindPage, page.RedirectTo)

	declared := model.Lookup(r.obj, "table").Present
	names := nameSet{}
	for i, item := range r.props.List("inputs") {
		ip := path.Key("inputs").Index(i)
		in, ok := validateInput(item, ip, page.Table, declared, e)
		if dup := names.claim(in.Name, ip.Key("name"), "input"); dup != nil {
			e.add(*dup)
		}
		if !ok {
			continue
		}
		page.Inputs = append(page.Inputs, in)
	}
	for i, item := range r.props.List("sections") {
		if s, ok := validateSection(item, path.Key("sections").Index(i), e); ok {
			page.Sections = append(page.Sections, s)
		}
	}
	r.finish(pageShape.Closed, nil)
	e.add(r.issues...)
	e.data = page
	return e
}

// validateInput validates one input of a page. An input bound to a field
// references that field on the page's table; declared tells whether the
// page has a table property at all.
func validateInput(raw any, path model.Path, table string, declared bool, e *entity) (model.Input, bool) {
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return model.Input{}, false
	}
	tag, ok := inputUnion.read(r)
	if !ok {
		e.add(r.issues...)
		return model.Input{Name: r.peek("name")}, false
	}
	p := r.props
	in := model.Input{
		Name:        p.String("name"),
		Type:        model.InputType(tag),
		Label:       p.String("label"),
		Required:    p.Bool("required"),
		Placeholder: p.String("placeholder"),
		Field:       p.String("field"),
	}
	switch in.Type {
	case model.InputText, model.InputTextarea:
		v := &model.TextInput{MinLength: p.IntPtr("minLength"), MaxLength: p.IntPtr("maxLength")}
		if v.MinLength != nil && v.MaxLength != nil && *v.MaxLength < *v.MinLength {
			r.addf(path.Key("maxLength"), model.CodeOutOfRange, "maxLength %d is below minLength %d", *v.MaxLength, *v.MinLength)
		}
		in.Variant = v
	case model.InputNumber:
		v := &model.NumberInput{Min: p.FloatPtr("min"), Max: p.FloatPtr("max"), Step: p.FloatPtr("step")}
		checkRange(r, v.Min, v.Max, nil)
		if v.Step != nil && *v.Step <= 0 {
			r.addf(path.Key("step"), model.CodeOutOfRange, "step must be greater than 0, got %s", formatNumber(*v.Step))
		}
		in.Variant = v
	case model.InputSelect:
		in.Variant = &model.SelectInput{Options: p.Strings("options")}
	case model.InputHidden:
		in.Variant = &model.HiddenInput{Value: p.String("value")}
	}

	switch {
	case in.Field == "":
	case !declared:
		r.addf(path.Key("field"), model.CodeDanglingReference,
			"input is bound to field %q but the page declares no table", in.Field)
	case table != "":
		e.ref(path.Key("field"), model.KindField, fieldID(table, in.Field))
	}
	e.add(r.issues...)
	return in, true
}

func validateSection(raw any, path model.Path, e *entity) (model.Section, bool) {
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return model.Section{}, false
	}
	tag, ok := sectionUnion.read(r)
	if !ok {
		e.add(r.issues...)
		return model.Section{}, false
	}
	p := r.props
	s := model.Section{Type: model.SectionType(tag)}
	switch s.Type {
	case model.SectionHeading:
		s.Variant = &model.HeadingSection{Text: p.String("text"), Level: p.Int("level")}
	case model.SectionParagraph:
		s.Variant = &model.ParagraphSection{Text: p.String("text")}
	case model.SectionImage:
		s.Variant = &model.ImageSection{Src: p.String("src"), Alt: p.String("alt")}
	case model.SectionLink:
		link := &model.LinkSection{Label: p.String("label"), Href: p.String("href"), Page: p.String("page")}
		if !model.Lookup(r.obj, "href").Present && !model.Lookup(r.obj, "page").Present {
			r.addf(path.Key("href"), model.CodeRequiredButMissing, "link needs either href or page")
		}
		e.ref(path.Key("page"), model.KindPage, link.Page)
		s.Variant = link
	}
	e.add(r.issues...)
	return s, true
}

// checkPagePaths reports pages that declare the same path as an earlier
// page. Default paths are assigned later and never collide.
func checkPagePaths(pages []*entity) {
	seen := nameSet{}
	for _, e := range pages {
		page, ok := e.data.(*model.Page)
		if !ok || page.Path == "" {
			continue
		}
		if dup := seen.claim(page.Path, e.path.Key("path"), "path"); dup != nil {
			e.add(*dup)
		}
	}
}
