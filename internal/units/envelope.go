package units

import (
	"encoding/json"
	"fmt"

	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
)

// Action names the operation carried by a validating endpoint request.
type Action string

const (
	ActionRegister    Action = "register"
	ActionConvert     Action = "convert"
	ActionLookup      Action = "lookup"
	ActionSellPortion Action = "sale_from_portion"
)

var validActions = []Action{ActionRegister, ActionConvert, ActionLookup, ActionSellPortion}

func (a Action) IsValid() bool {
	for _, candidate := range validActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ActionResponse is the single response envelope of the validating endpoint.
type ActionResponse struct {
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Code       string            `json:"code,omitempty"`
	Unit       *Unit             `json:"unit,omitempty"`
	Conversion *ConversionResult `json:"conversion,omitempty"`
	Lookup     *LookupResult     `json:"lookup,omitempty"`
	Sale       *SaleResult       `json:"sale,omitempty"`
}

// FailureResponse renders err as an unsuccessful envelope.
func FailureResponse(err error) ActionResponse {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	return ActionResponse{
		Success: false,
		Error:   typed.Message(),
		Code:    string(typed.Code()),
	}
}

// Err maps an unsuccessful envelope back onto a typed error.
func (r ActionResponse) Err() error {
	if r.Success {
		return nil
	}
	msg := r.Error
	if msg == "" {
		msg = "validating endpoint rejected the request"
	}
	return pkgerrors.New(pkgerrors.ParseCode(r.Code), msg)
}

// EncodeAction flattens payload into a JSON object and adds the action field.
func EncodeAction(action Action, payload any) ([]byte, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("invalid action %q", action)
	}
	fields := map[string]json.RawMessage{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("action payload must be a json object: %w", err)
		}
	}
	name, _ := json.Marshal(action)
	fields["action"] = name
	return json.Marshal(fields)
}

// DecodeAction reads the action name of a request body and strips it so the
// remaining fields can be decoded strictly into the matching input.
func DecodeAction(body []byte) (Action, []byte, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body must be a json object")
	}
	raw, ok := fields["action"]
	if !ok {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "action is required")
	}
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil || !action.IsValid() {
		return "", nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported action %s", string(raw))
	}
	delete(fields, "action")
	rest, err := json.Marshal(fields)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-encode action payload")
	}
	return action, rest, nil
}
