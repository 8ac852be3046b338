package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnera-dev/omnera/model"
)

func TestValidateAutomation(t *testing.T) {
	e := validateAutomation(object(t, `{
		"name": "Notify",
		"trigger": {"type": "record-created", "table": "orders", "condition": "total > 100"},
		"actions": [
			{"service": "email", "action": "send", "to": "ops@example.com", "subject": "New order", "connection": "mail"},
			{"service": "http", "action": "post", "url": "https://hooks.example.com/x", "body": {"a": 1}, "headers": {"X-Key": "k"}},
			{"service": "delay", "action": "wait", "duration": "10m"},
			{"service": "database", "action": "create-record", "table": "audit", "values": {"note": "x", "at": "now"}}
		]
	}`), model.PathOf("automations", 0), 0)
	require.Empty(t, e.issues)

	a := e.data.(*model.Automation)
	assert.True(t, a.Enabled)
	assert.Equal(t, model.TriggerRecordCreated, a.Trigger.Type)
	assert.Equal(t, "total > 100", a.Trigger.Condition)
	require.Len(t, a.Actions, 4)
	assert.Equal(t, &model.EmailAction{To: "ops@example.com", Subject: "New order", Connection: "mail"}, a.Actions[0].Variant)
	assert.Equal(t, map[string]string{"X-Key": "k"}, a.Actions[1].Variant.(*model.HTTPAction).Headers)
	assert.Equal(t, &model.DelayAction{Duration: "10m"}, a.Actions[2].Variant)

	assert.Equal(t, []model.CrossReference{
		{From: model.PathOf("automations", 0, "trigger", "table"), ToKind: model.KindTable, ToID: "orders"},
		{From: model.PathOf("automations", 0, "actions", 0, "connection"), ToKind: model.KindConnection, ToID: "mail"},
		{From: model.PathOf("automations", 0, "actions", 3, "table"), ToKind: model.KindTable, ToID: "audit"},
		{From: model.PathOf("automations", 0, "actions", 3, "values", "at"), ToKind: model.KindField, ToID: "audit.at"},
		{From: model.PathOf("automations", 0, "actions", 3, "values", "note"), ToKind: model.KindField, ToID: "audit.note"},
	}, e.refs)
}

func TestValidateAutomation_issues(t *testing.T) {
	e := validateAutomation(object(t, `{
		"name": "Broken",
		"enabled": "yes",
		"trigger": {"type": "schedule", "cron": "every day", "condition": "a &&"},
		"actions": [
			{"service": "sms", "action": "send"},
			{"service": "delay", "action": "wait", "duration": "-5s"},
			{"service": "http", "action": "get", "url": "https://x.example.com", "headers": {"X-Retry": 3}},
			"noop"
		]
	}`), model.PathOf("automations", 2), 2)

	want := map[string]model.Code{
		"automations[2].enabled":                    model.CodeInvalidType,
		"automations[2].trigger.cron":               model.CodeInvalidFormat,
		"automations[2].trigger.condition":          model.CodeInvalidFormat,
		"automations[2].actions[0].service":         model.CodeUnknownVariant,
		"automations[2].actions[1].duration":        model.CodeInvalidFormat,
		"automations[2].actions[2].headers.X-Retry": model.CodeInvalidType,
		"automations[2].actions[3]":                 model.CodeInvalidType,
	}
	for path, code := range want {
		assert.Equal(t, []model.Code{code}, codesAt(e, path), path)
	}
	assert.Len(t, e.issues, len(want))
}

func TestValidateAutomation_requires_actions(t *testing.T) {
	e := validateAutomation(object(t, `{
		"name": "Empty",
		"trigger": {"type": "webhook", "path": "/hooks/in"},
		"actions": []
	}`), model.PathOf("automations", 0), 0)

	require.Len(t, e.issues, 1)
	assert.Equal(t, "automations[0].actions", e.issues[0].Path.String())
	assert.Equal(t, model.CodeTooShort, e.issues[0].Code)

	trigger := e.data.(*model.Automation).Trigger
	assert.Equal(t, &model.WebhookTrigger{Path: "/hooks/in", Method: "POST"}, trigger.Variant)
}

func TestParseSchedule(t *testing.T) {
	for _, ok := range []string{"0 * * * *", "*/15 9-17 * * 1-5", " 0 0 1,15 * * ", "@daily", "@every 1h"} {
		assert.NoError(t, parseSchedule(ok), ok)
	}
	for _, bad := range []string{"* * * *", "0 0 * * * *", "a b c d e", "99 99 99 99 99", "*/0 * * * *", "0 0 31 2-1 *", "@fortnightly"} {
		assert.Error(t, parseSchedule(bad), bad)
	}
}

func TestValidateAutomation_impossible_schedule(t *testing.T) {
	for _, expr := range []string{"99 99 99 99 99", "*/0 * * * *"} {
		e := validateAutomation(object(t, `{
			"name": "Nightly",
			"trigger": {"type": "schedule", "cron": "`+expr+`"},
			"actions": [{"service": "http", "action": "get", "url": "https://example.com/ping"}]
		}`), model.PathOf("automations", 0), 0)

		assert.Equal(t, []model.Code{model.CodeInvalidFormat}, codesAt(e, "automations[0].trigger.cron"), expr)
	}
}
