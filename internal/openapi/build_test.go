package openapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/omnera-dev/omnera/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func table(id, name string, fields ...model.Field) model.Entity[model.Table] {
	return model.Entity[model.Table]{
		ID:   id,
		Kind: model.KindTable,
		Path: model.PathOf("tables", 0),
		Data: model.Table{Name: name, Fields: fields},
	}
}

func shopApplication() *model.Application {
	return &model.Application{
		Name:    "Shop",
		Version: "2.1.0",
		Tables: model.NewCollection([]model.Entity[model.Table]{
			table("customers", "Customers",
				model.Field{Name: "email", Type: model.FieldEmail, Required: true, Variant: &model.TextField{}},
				model.Field{Name: "name", Type: model.FieldSingleLineText, Label: "Full name", Variant: &model.TextField{MaxLength: intPtr(80)}},
			),
			table("orders", "Orders",
				model.Field{Name: "quantity", Type: model.FieldInteger, Required: true, Variant: &model.NumberField{Min: floatPtr(1)}},
				model.Field{Name: "total", Type: model.FieldCurrency, Variant: &model.NumberField{Currency: "EUR"}},
				model.Field{Name: "paid", Type: model.FieldCheckbox, Variant: &model.CheckboxField{}},
				model.Field{Name: "placed", Type: model.FieldDate, Variant: &model.DateField{IncludeTime: true}},
				model.Field{Name: "status", Type: model.FieldSingleSelect, Variant: &model.SelectField{Options: []string{"open", "shipped"}, Default: "open"}},
				model.Field{Name: "customer", Type: model.FieldRelationship, Variant: &model.RelationshipField{RelatedTable: "customers", RelationType: "many-to-one"}},
				model.Field{Name: "tags", Type: model.FieldRelationship, Variant: &model.RelationshipField{RelatedTable: "customers", RelationType: "many-to-many"}},
				model.Field{Name: "net", Type: model.FieldFormula, Variant: &model.FormulaField{Formula: "total * 0.8", ResultType: "number"}},
			),
		}),
	}
}

func TestBuild_paths(t *testing.T) {
	doc, err := Build(shopApplication())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if doc.Info.Title != "Shop" || doc.Info.Version != "2.1.0" {
		t.Errorf("Info = %+v, want Shop 2.1.0", doc.Info)
	}
	if n := doc.Paths.Len(); n != 4 {
		t.Fatalf("paths = %d, want 4", n)
	}

	records := doc.Paths.Value("/api/tables/orders/records")
	if records == nil {
		t.Fatal("missing /api/tables/orders/records")
	}
	if records.Get == nil || records.Get.OperationID != "listOrders" {
		t.Errorf("list operation = %+v, want listOrders", records.Get)
	}
	if records.Post == nil || records.Post.OperationID != "createOrder" {
		t.Errorf("create operation = %+v, want createOrder", records.Post)
	}

	record := doc.Paths.Value("/api/tables/orders/records/{recordId}")
	if record == nil {
		t.Fatal("missing /api/tables/orders/records/{recordId}")
	}
	for method, op := range map[string]string{
		http.MethodGet:    "getOrder",
		http.MethodPut:    "updateOrder",
		http.MethodDelete: "deleteOrder",
	} {
		got := record.GetOperation(method)
		if got == nil || got.OperationID != op {
			t.Errorf("%s operation = %+v, want %s", method, got, op)
		}
	}
	if len(record.Parameters) != 1 || record.Parameters[0].Value.Name != "recordId" {
		t.Errorf("record parameters = %+v, want recordId", record.Parameters)
	}
	if record.Delete.Responses.Status(http.StatusNoContent) == nil {
		t.Error("delete should answer 204")
	}
	if record.Get.Responses.Status(http.StatusNotFound) == nil {
		t.Error("get should document 404")
	}
}

func TestBuild_componentSchemas(t *testing.T) {
	doc, err := Build(shopApplication())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, name := range []string{"customers", "orders", "Error"} {
		if doc.Components.Schemas[name] == nil {
			t.Errorf("component schema %q missing", name)
		}
	}

	create := doc.Paths.Value("/api/tables/customers/records").Post
	body := create.RequestBody.Value.Content.Get("application/json")
	if body == nil || body.Schema.Ref != "#/components/schemas/customers" {
		t.Fatalf("create body = %+v, want a ref to customers", body)
	}

	customers := doc.Components.Schemas["customers"].Value
	if len(customers.Required) != 1 || customers.Required[0] != "email" {
		t.Errorf("Required = %v, want [email]", customers.Required)
	}
	if !customers.Properties["id"].Value.ReadOnly {
		t.Error("id should be read-only")
	}
}

func TestBuild_emptyApplication(t *testing.T) {
	doc, err := Build(&model.Application{Name: "Blank"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if doc.Info.Version != "0.0.0" {
		t.Errorf("Version = %q, want 0.0.0", doc.Info.Version)
	}
	if doc.Paths.Len() != 0 {
		t.Errorf("paths = %d, want 0", doc.Paths.Len())
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out["openapi"] != Version {
		t.Errorf("openapi = %v, want %s", out["openapi"], Version)
	}
}

func TestBuild_operationIDsStayUnique(t *testing.T) {
	app := &model.Application{
		Name: "Twins",
		Tables: model.NewCollection([]model.Entity[model.Table]{
			table("a1", "A1"),
			table("a-1", "A 1"),
		}),
	}
	doc, err := Build(app)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	seen := map[string]bool{}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if seen[op.OperationID] {
				t.Errorf("%s %s reuses operation id %q", method, path, op.OperationID)
			}
			seen[op.OperationID] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("operation ids = %d, want 10", len(seen))
	}
}

func TestRecordSchema_fieldMapping(t *testing.T) {
	orders := shopApplication().Tables.All()[1].Data
	props := RecordSchema(orders).Properties

	tests := []struct {
		field string
		typ   string
		check func(t *testing.T)
	}{
		{"quantity", "integer", func(t *testing.T) {
			if m := props["quantity"].Value.Min; m == nil || *m != 1 {
				t.Errorf("quantity min = %v, want 1", m)
			}
		}},
		{"total", "number", func(t *testing.T) {
			if d := props["total"].Value.Description; d != "Amount in EUR" {
				t.Errorf("total description = %q", d)
			}
		}},
		{"paid", "boolean", nil},
		{"placed", "string", func(t *testing.T) {
			if f := props["placed"].Value.Format; f != "date-time" {
				t.Errorf("placed format = %q, want date-time", f)
			}
		}},
		{"status", "string", func(t *testing.T) {
			s := props["status"].Value
			if len(s.Enum) != 2 || s.Default != "open" {
				t.Errorf("status enum = %v default = %v", s.Enum, s.Default)
			}
		}},
		{"customer", "string", nil},
		{"tags", "array", nil},
		{"net", "number", func(t *testing.T) {
			if !props["net"].Value.ReadOnly {
				t.Error("formula fields should be read-only")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			ref, ok := props[tt.field]
			if !ok {
				t.Fatalf("property %q missing", tt.field)
			}
			if !ref.Value.Type.Is(tt.typ) {
				t.Errorf("type = %v, want %s", ref.Value.Type, tt.typ)
			}
			if tt.check != nil {
				tt.check(t)
			}
		})
	}
}

func TestRecordSchema_visitsRecords(t *testing.T) {
	orders := shopApplication().Tables.All()[1].Data
	s := RecordSchema(orders)

	tests := []struct {
		name   string
		record map[string]any
		valid  bool
	}{
		{"minimal", map[string]any{"quantity": 2.0}, true},
		{"full", map[string]any{
			"quantity": 3.0, "total": 12.5, "paid": true, "status": "shipped",
			"customer": "c-1", "tags": []any{"c-2", "c-3"},
		}, true},
		{"missing quantity", map[string]any{"paid": false}, false},
		{"below minimum", map[string]any{"quantity": 0.0}, false},
		{"unknown option", map[string]any{"quantity": 1.0, "status": "lost"}, false},
		{"fractional integer", map[string]any{"quantity": 1.5}, false},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i)+" "+tt.name, func(t *testing.T) {
			err := s.VisitJSON(tt.record)
			if tt.valid && err != nil {
				t.Errorf("VisitJSON() error = %v, want valid", err)
			}
			if !tt.valid && err == nil {
				t.Error("VisitJSON() should reject the record")
			}
		})
	}
}
