package schema

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omnera-dev/omnera/model"
)

// parseSchedule accepts a standard five-field cron expression or a
// descriptor such as @daily or @every 1h.
func parseSchedule(s string) error {
	_, err := cron.ParseStandard(s)
	return err
}

var automationShape = newShape("automation", false,
	Property{"id", Identifier(false)},
	Property{"name", StringRule{Required: true, MinLength: 1, MaxLength: 63}},
	Property{"description", StringRule{}},
	Property{"enabled", BooleanRule{Default: Ptr(true)}},
	Property{"trigger", ObjectRule{Required: true}},
	Property{"actions", ArrayRule{Required: true, MinItems: 1}},
)

var triggerCommon = newShape("trigger", false,
	Property{"condition", StringRule{Check: compileExpression}},
)

func recordTrigger(name string) Variant {
	return Variant{name, newShape(name, false, Property{"table", Reference(true)})}
}

var triggerUnion = newUnion("trigger", []string{"type"}, triggerCommon,
	recordTrigger("record-created"),
	recordTrigger("record-updated"),
	recordTrigger("record-deleted"),
	Variant{"schedule", newShape("schedule", false,
		Property{"cron", StringRule{Required: true, Check: parseSchedule}},
	)},
	Variant{"webhook", newShape("webhook", false,
		Property{"path", StringRule{Required: true, Pattern: urlPathPattern}},
		Property{"method", EnumRule{Values: []string{"GET", "POST"}, Default: "POST"}},
	)},
)

var actionUnion = newUnion("action", []string{"service", "action"}, nil,
	Variant{"database:create-record", newShape("create-record", false,
		Property{"table", Reference(true)},
		Property{"values", ObjectRule{Required: true}},
	)},
	Variant{"database:update-record", newShape("update-record", false,
		Property{"table", Reference(true)},
		Property{"recordId", StringRule{Required: true, MinLength: 1}},
		Property{"values", ObjectRule{Required: true}},
	)},
	Variant{"database:delete-record", newShape("delete-record", false,
		Property{"table", Reference(true)},
		Property{"recordId", StringRule{Required: true, MinLength: 1}},
	)},
	Variant{"http:get", newShape("get", false,
		Property{"url", StringRule{Required: true, Format: "http_url"}},
		Property{"headers", ObjectRule{}},
		Property{"connection", Reference(false)},
	)},
	Variant{"http:post", newShape("post", false,
		Property{"url", StringRule{Required: true, Format: "http_url"}},
		Property{"headers", ObjectRule{}},
		Property{"body", AnyRule{}},
		Property{"connection", Reference(false)},
	)},
	Variant{"email:send", newShape("send", false,
		Property{"to", StringRule{Required: true, Format: "email"}},
		Property{"subject", StringRule{Required: true, MinLength: 1}},
		Property{"body", StringRule{}},
		Property{"connection", Reference(false)},
	)},
	Variant{"delay:wait", newShape("wait", false,
		Property{"duration", StringRule{Required: true, Check: checkDuration}},
	)},
)

func checkDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("duration must be positive")
	}
	return nil
}

func validateAutomation(raw any, path model.Path, pos int) *entity {
	e := newEntity(model.KindAutomation, path, pos)
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return e
	}
	e.identify(r)
	r.apply(automationShape)

	a := &model.Automation{
		Name:        r.props.String("name"),
		Description: r.props.String("description"),
		Enabled:     r.props.Bool("enabled"),
	}
	if obj := r.props.Object("trigger"); obj != nil {
		a.Trigger = validateTrigger(obj, path.Key("trigger"), e)
	}
	for i, item := range r.props.List("actions") {
		if act, ok := validateAction(item, path.Key("actions").Index(i), e); ok {
			a.Actions = append(a.Actions, act)
		}
	}
	r.finish(automationShape.Closed, nil)
	e.add(r.issues...)
	e.data = a
	return e
}

func validateTrigger(obj map[string]any, path model.Path, e *entity) model.Trigger {
	r := newReader(obj, path)
	tag, ok := triggerUnion.read(r)
	e.add(r.issues...)
	if !ok {
		return model.Trigger{}
	}
	t := model.Trigger{Type: model.TriggerType(tag), Condition: r.props.String("condition")}
	switch t.Type {
	case model.TriggerRecordCreated, model.TriggerRecordUpdated, model.TriggerRecordDeleted:
		v := &model.RecordTrigger{Table: r.props.String("table")}
		e.ref(path.Key("table"), model.KindTable, v.Table)
		t.Variant = v
	case model.TriggerSchedule:
		t.Variant = &model.ScheduleTrigger{Cron: r.props.String("cron")}
	case model.TriggerWebhook:
		t.Variant = &model.WebhookTrigger{Path: r.props.String("path"), Method: r.props.String("method")}
	}
	return t
}

// validateAction validates one automation step. Record values reference
// fields of the target table by key.
func validateAction(raw any, path model.Path, e *entity) (model.Action, bool) {
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return model.Action{}, false
	}
	tag, ok := actionUnion.read(r)
	if !ok {
		e.add(r.issues...)
		return model.Action{}, false
	}
	p := r.props
	a := model.Action{Service: r.peek("service"), Action: r.peek("action")}
	switch a.Service {
	case "database":
		v := &model.RecordAction{Table: p.String("table"), Values: p.Object("values"), RecordID: p.String("recordId")}
		e.ref(path.Key("table"), model.KindTable, v.Table)
		if v.Table != "" {
			for _, key := range sortedKeys(v.Values) {
				e.ref(path.Key("values").Key(key), model.KindField, fieldID(v.Table, key))
			}
		}
		a.Variant = v
	case "http":
		v := &model.HTTPAction{
			URL:        p.String("url"),
			Headers:    stringMap(r, "headers"),
			Connection: p.String("connection"),
		}
		if tag == "http:post" {
			v.Body = p["body"]
		}
		e.ref(path.Key("connection"), model.KindConnection, v.Connection)
		a.Variant = v
	case "email":
		v := &model.EmailAction{
			To:         p.String("to"),
			Subject:    p.String("subject"),
			Body:       p.String("body"),
			Connection: p.String("connection"),
		}
		e.ref(path.Key("connection"), model.KindConnection, v.Connection)
		a.Variant = v
	case "delay":
		a.Variant = &model.DelayAction{Duration: p.String("duration")}
	}
	e.add(r.issues...)
	return a, true
}

// stringMap reads an object of string values, reporting each non-string
// member at its own path.
func stringMap(r *reader, key string) map[string]string {
	obj := r.props.Object(key)
	if obj == nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for _, k := range sortedKeys(obj) {
		path := r.path.Key(key).Key(k)
		s, ok := obj[k].(string)
		if !ok {
			r.addf(path, model.CodeInvalidType, "%s must be a string, got %s", k, typeName(obj[k]))
			continue
		}
		out[k] = s
	}
	return out
}
