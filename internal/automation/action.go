package automation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"leadflow/pkg/models"
)

type ValidationError = models.ValidationError

type ActionType string

const (
	ActionSendEmail     ActionType = "send_email"
	ActionUpdateLead    ActionType = "update_lead"
	ActionAddToCampaign ActionType = "add_to_campaign"
	ActionNotifyTeam    ActionType = "notify_team"
)

// Action is one step of a rule. The set of variants is closed.
type Action interface {
	Type() ActionType
	Validate() error
	isAction()
}

type SendEmail struct {
	TemplateID string `mapstructure:"template_id"`
}

type UpdateLead struct {
	Fields map[string]interface{} `mapstructure:"fields"`
}

type AddToCampaign struct {
	CampaignID string `mapstructure:"campaign_id"`
}

type NotifyTeam struct {
	Channel string `mapstructure:"channel"`
	Message string `mapstructure:"message"`
}

func (SendEmail) Type() ActionType     { return ActionSendEmail }
func (UpdateLead) Type() ActionType    { return ActionUpdateLead }
func (AddToCampaign) Type() ActionType { return ActionAddToCampaign }
func (NotifyTeam) Type() ActionType    { return ActionNotifyTeam }

func (SendEmail) isAction()     {}
func (UpdateLead) isAction()    {}
func (AddToCampaign) isAction() {}
func (NotifyTeam) isAction()    {}

func (a SendEmail) Validate() error {
	if strings.TrimSpace(a.TemplateID) == "" {
		return &ValidationError{Field: "params.template_id", Message: "template_id is required for send_email"}
	}
	return nil
}

func (a UpdateLead) Validate() error {
	if a.Fields == nil {
		return &ValidationError{Field: "params.fields", Message: "fields is required for update_lead"}
	}
	return nil
}

func (a AddToCampaign) Validate() error {
	if strings.TrimSpace(a.CampaignID) == "" {
		return &ValidationError{Field: "params.campaign_id", Message: "campaign_id is required for add_to_campaign"}
	}
	return nil
}

func (NotifyTeam) Validate() error { return nil }

// ActionSpec is the stored and wire form of an action.
type ActionSpec struct {
	Type   ActionType             `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// ParseAction decodes a spec into its typed variant and validates it.
func ParseAction(spec ActionSpec) (Action, error) {
	var action Action
	switch spec.Type {
	case ActionSendEmail:
		var a SendEmail
		if err := decodeParams(spec.Params, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionUpdateLead:
		var a UpdateLead
		if err := decodeParams(spec.Params, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionAddToCampaign:
		var a AddToCampaign
		if err := decodeParams(spec.Params, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionNotifyTeam:
		var a NotifyTeam
		if err := decodeParams(spec.Params, &a); err != nil {
			return nil, err
		}
		action = a
	default:
		return nil, &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown action type %q", spec.Type),
		}
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}
	return action, nil
}

func decodeParams(params map[string]interface{}, out interface{}) error {
	if params == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return &ValidationError{Field: "params", Message: err.Error()}
	}
	return nil
}

// SpecOf converts a typed action back to its wire form.
func SpecOf(action Action) ActionSpec {
	params := make(map[string]interface{})
	switch a := action.(type) {
	case SendEmail:
		params["template_id"] = a.TemplateID
	case UpdateLead:
		params["fields"] = a.Fields
	case AddToCampaign:
		params["campaign_id"] = a.CampaignID
	case NotifyTeam:
		if a.Channel != "" {
			params["channel"] = a.Channel
		}
		if a.Message != "" {
			params["message"] = a.Message
		}
	}
	return ActionSpec{Type: action.Type(), Params: params}
}

// Actions is an ordered action list stored as a JSON array of specs.
type Actions []Action

func (a Actions) Specs() []ActionSpec {
	specs := make([]ActionSpec, 0, len(a))
	for _, action := range a {
		specs = append(specs, SpecOf(action))
	}
	return specs
}

func (a Actions) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Specs())
}

func (a *Actions) UnmarshalJSON(data []byte) error {
	var specs []ActionSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return err
	}
	parsed, err := ParseActions(specs)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ParseActions(specs []ActionSpec) (Actions, error) {
	actions := make(Actions, 0, len(specs))
	for i, spec := range specs {
		action, err := ParseAction(spec)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}
