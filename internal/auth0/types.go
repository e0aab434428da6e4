package auth0

// Action is a deployable Management API action. ID is assigned by the
// tenant on creation and is empty until then.
type Action struct {
	ID                string    `json:"id,omitempty"`
	Name              string    `json:"name"`
	Code              string    `json:"code"`
	Runtime           string    `json:"runtime,omitempty"`
	SupportedTriggers []Trigger `json:"supported_triggers,omitempty"`
	Secrets           []Secret  `json:"secrets,omitempty"`
	Status            string    `json:"status,omitempty"`
}

// Trigger identifies an execution point an action can attach to.
type Trigger struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// Secret is a name/value pair stored alongside an action.
type Secret struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Binding is one entry in a trigger's ordered action list as the tenant
// reports it. Order among bindings of the same trigger is execution order.
type Binding struct {
	ID          string        `json:"id,omitempty"`
	TriggerID   string        `json:"trigger_id,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	Action      BindingAction `json:"action"`
}

// BindingAction is the resolved action a binding points at.
type BindingAction struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// BindingEntry is one element of the full desired list submitted on a
// binding replace. Entries carry no binding id; the tenant rebuilds the
// whole set for the trigger from the submitted order.
type BindingEntry struct {
	Ref         BindingRef `json:"ref"`
	DisplayName string     `json:"display_name,omitempty"`
}

// BindingRef references an action by id or name.
type BindingRef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// RefTypeActionID is the BindingRef.Type for references by action id.
const RefTypeActionID = "action_id"

// Entry converts a read binding into the write form, keeping its display
// name and falling back to the action's own name when none was recorded.
func (b Binding) Entry() BindingEntry {
	name := b.DisplayName
	if name == "" {
		name = b.Action.Name
	}
	return BindingEntry{
		Ref:         BindingRef{Type: RefTypeActionID, Value: b.Action.ID},
		DisplayName: name,
	}
}
