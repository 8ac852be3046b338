// Package openapi generates the OpenAPI description of the record routes an
// application's tables expose.
package openapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/inflect"

	"github.com/omnera-dev/omnera/model"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

const (
	errorSchemaName = "Error"
	recordIDParam   = "recordId"
)

// RecordsPath returns the collection path of a table's records.
func RecordsPath(tableID string) string {
	return "/api/tables/" + tableID + "/records"
}

// RecordPath returns the templated path of a single record of a table.
func RecordPath(tableID string) string {
	return RecordsPath(tableID) + "/{" + recordIDParam + "}"
}

// Build generates an OpenAPI document with list, create, get, update and
// delete operations for every table of app. Each table contributes a
// component schema named by its id. The document is validated before it is
// returned.
func Build(app *model.Application) (*openapi3.T, error) {
	version := app.Version
	if version == "" {
		version = "0.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       app.Name,
			Description: app.Description,
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				errorSchemaName: openapi3.NewSchemaRef("", errorSchema()),
			},
		},
	}

	b := &builder{doc: doc, opIDs: make(map[string]bool)}
	for _, t := range app.Tables.All() {
		b.addTable(t)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: generated document is invalid: %w", err)
	}
	return doc, nil
}

type builder struct {
	doc   *openapi3.T
	opIDs map[string]bool
}

func (b *builder) addTable(t model.Entity[model.Table]) {
	record := RecordSchema(t.Data)
	b.doc.Components.Schemas[t.ID] = openapi3.NewSchemaRef("", record)

	ref := &openapi3.SchemaRef{Ref: "#/components/schemas/" + t.ID, Value: record}
	errRef := &openapi3.SchemaRef{
		Ref:   "#/components/schemas/" + errorSchemaName,
		Value: b.doc.Components.Schemas[errorSchemaName].Value,
	}

	noun := inflect.Camelize(inflect.Singularize(t.ID))
	plural := inflect.Camelize(t.ID)
	tags := []string{t.Data.Name}

	list := b.operation("list"+plural, "List "+t.Data.Name+" records", tags)
	list.Responses = openapi3.NewResponses(
		withJSON(http.StatusOK, "The records of the table", ref, true),
	)

	create := b.operation("create"+noun, "Create a "+t.Data.Name+" record", tags)
	create.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref),
	}
	create.Responses = openapi3.NewResponses(
		withJSON(http.StatusCreated, "The created record", ref, false),
		withJSON(http.StatusBadRequest, "The record does not match the table", errRef, false),
	)

	get := b.operation("get"+noun, "Get a "+t.Data.Name+" record", tags)
	get.Responses = openapi3.NewResponses(
		withJSON(http.StatusOK, "The record", ref, false),
		withJSON(http.StatusNotFound, "No record has this id", errRef, false),
	)

	update := b.operation("update"+noun, "Update a "+t.Data.Name+" record", tags)
	update.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref),
	}
	update.Responses = openapi3.NewResponses(
		withJSON(http.StatusOK, "The updated record", ref, false),
		withJSON(http.StatusBadRequest, "The record does not match the table", errRef, false),
		withJSON(http.StatusNotFound, "No record has this id", errRef, false),
	)

	del := b.operation("delete"+noun, "Delete a "+t.Data.Name+" record", tags)
	del.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusNoContent, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("The record was deleted"),
		}),
		withJSON(http.StatusNotFound, "No record has this id", errRef, false),
	)

	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(recordIDParam).WithSchema(openapi3.NewStringSchema()),
	}
	b.doc.Paths.Set(RecordsPath(t.ID), &openapi3.PathItem{
		Summary: t.Data.Name,
		Get:     list,
		Post:    create,
	})
	b.doc.Paths.Set(RecordPath(t.ID), &openapi3.PathItem{
		Summary:    t.Data.Name,
		Parameters: openapi3.Parameters{idParam},
		Get:        get,
		Put:        update,
		Delete:     del,
	})
}

// operation returns an operation whose id is unique within the document.
// Table ids that camelize to the same name get a numeric suffix.
func (b *builder) operation(id, summary string, tags []string) *openapi3.Operation {
	unique := id
	for n := 2; b.opIDs[unique]; n++ {
		unique = fmt.Sprintf("%s%d", id, n)
	}
	b.opIDs[unique] = true

	op := openapi3.NewOperation()
	op.OperationID = unique
	op.Summary = summary
	op.Tags = tags
	return op
}

// withJSON builds a response option with a JSON body of ref, or of an array
// of ref.
func withJSON(status int, desc string, ref *openapi3.SchemaRef, array bool) openapi3.NewResponsesOption {
	resp := openapi3.NewResponse().WithDescription(desc)
	if array {
		arr := openapi3.NewArraySchema()
		arr.Items = ref
		resp = resp.WithJSONSchema(arr)
	} else {
		resp = resp.WithJSONSchemaRef(ref)
	}
	return openapi3.WithStatus(status, &openapi3.ResponseRef{Value: resp})
}

func errorSchema() *openapi3.Schema {
	detail := openapi3.NewObjectSchema().
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("severity", openapi3.NewStringSchema())

	body := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewStringSchema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("details", openapi3.NewArraySchema().WithItems(detail)).
		WithProperty("trace_id", openapi3.NewStringSchema())
	body.Required = []string{"code", "message"}

	envelope := openapi3.NewObjectSchema().WithProperty("error", body)
	envelope.Required = []string{"error"}
	return envelope
}
