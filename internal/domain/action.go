package domain

import "fmt"

// ActionKind identifies a reconciliation step
type ActionKind string

const (
	ActionAddNew          ActionKind = "add_new"           // Create a queue for a new device
	ActionUpdateURI       ActionKind = "update_uri"        // Retarget an existing queue
	ActionReattach        ActionKind = "reattach"          // Recreate a known queue that went missing
	ActionRegisterMacOnly ActionKind = "register_mac_only" // Back-fill identity for a configured queue
	ActionSkip            ActionKind = "skip"              // Nothing to do
)

// Action is one reconciliation step and, once applied, its outcome
type Action struct {
	Kind   ActionKind      `json:"kind"`
	Name   string          `json:"name"`
	URI    string          `json:"uri"`
	OldURI string          `json:"old_uri,omitempty"`
	MAC    HardwareAddress `json:"mac,omitempty"`

	// Identityless marks an AddNew for a device whose MAC could not be
	// resolved. Such a queue may duplicate one created on a later pass.
	Identityless bool `json:"identityless,omitempty"`

	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// AddNew creates an add action. An empty mac marks it identity-less.
func AddNew(name, uri string, mac HardwareAddress) Action {
	return Action{Kind: ActionAddNew, Name: name, URI: uri, MAC: mac, Identityless: mac == ""}
}

// UpdateURI creates a retarget action
func UpdateURI(name, oldURI, newURI string, mac HardwareAddress) Action {
	return Action{Kind: ActionUpdateURI, Name: name, URI: newURI, OldURI: oldURI, MAC: mac}
}

// Reattach creates an action recreating a known queue
func Reattach(name, uri string, mac HardwareAddress) Action {
	return Action{Kind: ActionReattach, Name: name, URI: uri, MAC: mac}
}

// RegisterMacOnly creates an identity back-fill action
func RegisterMacOnly(mac HardwareAddress, name, uri string) Action {
	return Action{Kind: ActionRegisterMacOnly, Name: name, URI: uri, MAC: mac}
}

// Skip creates a no-op action
func Skip(name, uri string, mac HardwareAddress) Action {
	return Action{Kind: ActionSkip, Name: name, URI: uri, MAC: mac}
}

// Changes reports whether the action alters queues or identity records
func (a Action) Changes() bool {
	return a.Kind != ActionSkip
}

// String renders the action for logs and reports
func (a Action) String() string {
	switch a.Kind {
	case ActionAddNew:
		if a.Identityless {
			return fmt.Sprintf("AddNew(%s, %s, identity-less)", a.Name, a.URI)
		}
		return fmt.Sprintf("AddNew(%s, %s, %s)", a.Name, a.URI, a.MAC)
	case ActionUpdateURI:
		return fmt.Sprintf("UpdateUri(%s, %s -> %s)", a.Name, a.OldURI, a.URI)
	case ActionReattach:
		return fmt.Sprintf("Reattach(%s, %s)", a.Name, a.URI)
	case ActionRegisterMacOnly:
		return fmt.Sprintf("RegisterMacOnly(%s, %s)", a.MAC, a.Name)
	default:
		return fmt.Sprintf("Skip(%s)", a.Name)
	}
}
