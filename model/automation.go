package model

// Automation reacts to a trigger by running its actions in order.
type Automation struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	Trigger     Trigger  `json:"trigger"`
	Actions     []Action `json:"actions"`
}

// TriggerType discriminates the Trigger variants.
type TriggerType string

const (
	TriggerRecordCreated TriggerType = "record-created"
	TriggerRecordUpdated TriggerType = "record-updated"
	TriggerRecordDeleted TriggerType = "record-deleted"
	TriggerSchedule      TriggerType = "schedule"
	TriggerWebhook       TriggerType = "webhook"
)

// Trigger starts an automation. Condition, when set, is an expression that
// must hold for the automation to run.
type Trigger struct {
	Type      TriggerType    `json:"type"`
	Condition string         `json:"condition,omitempty"`
	Variant   TriggerVariant `json:"-"`
}

type triggerCommon Trigger

// MarshalJSON flattens the variant payload into the trigger object.
func (t Trigger) MarshalJSON() ([]byte, error) {
	return marshalFlat(triggerCommon(t), t.Variant)
}

// TriggerVariant is implemented by every trigger payload type.
type TriggerVariant interface {
	triggerVariant()
}

// RecordTrigger fires on record changes in Table.
type RecordTrigger struct {
	Table string `json:"table"`
}

type ScheduleTrigger struct {
	Cron string `json:"cron"`
}

type WebhookTrigger struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

func (*RecordTrigger) triggerVariant()   {}
func (*ScheduleTrigger) triggerVariant() {}
func (*WebhookTrigger) triggerVariant()  {}

// Action is one step of an automation, discriminated by the Service and
// Action pair.
type Action struct {
	Service string        `json:"service"`
	Action  string        `json:"action"`
	Variant ActionVariant `json:"-"`
}

type actionCommon Action

// MarshalJSON flattens the variant payload into the action object.
func (a Action) MarshalJSON() ([]byte, error) {
	return marshalFlat(actionCommon(a), a.Variant)
}

// ActionVariant is implemented by every action payload type.
type ActionVariant interface {
	actionVariant()
}

// RecordAction backs database:create-record, update-record and
// delete-record.
type RecordAction struct {
	Table    string         `json:"table"`
	Values   map[string]any `json:"values,omitempty"`
	RecordID string         `json:"recordId,omitempty"`
}

// HTTPAction backs http:get and http:post.
type HTTPAction struct {
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`
	Connection string            `json:"connection,omitempty"`
}

type EmailAction struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body,omitempty"`
	Connection string `json:"connection,omitempty"`
}

type DelayAction struct {
	Duration string `json:"duration"`
}

func (*RecordAction) actionVariant() {}
func (*HTTPAction) actionVariant()   {}
func (*EmailAction) actionVariant()  {}
func (*DelayAction) actionVariant()  {}
