// Package bindings maintains the ordered action list bound to one trigger.
//
// The tenant has no partial-update call for bindings: a write replaces the
// whole list. Every mutation here therefore re-reads the current list and
// submits the full desired one. Two concurrent mutations against the same
// trigger race read-modify-write and the tenant applies last-write-wins;
// this layer adds no coordination, and the tenant exposes no version token
// to condition a write on.
package bindings

import (
	"context"

	"actionsflow/internal/auth0"
)

type Manager struct {
	client  *auth0.Client
	trigger string
}

func NewManager(client *auth0.Client, trigger string) *Manager {
	return &Manager{client: client, trigger: trigger}
}

// List reads the current ordered binding list.
func (m *Manager) List(ctx context.Context) ([]auth0.Binding, error) {
	return m.client.TriggerBindings(ctx, m.trigger)
}

// Bind inserts actionID into the list at position, appending when position
// is negative or past the end. Binding an action that is already bound is
// a no-op: the current list comes back and no write is issued.
func (m *Manager) Bind(ctx context.Context, actionID, displayName string, position int) ([]auth0.Binding, error) {
	current, err := m.client.TriggerBindings(ctx, m.trigger)
	if err != nil {
		return nil, err
	}
	for _, b := range current {
		if b.Action.ID == actionID {
			return current, nil
		}
	}

	entry := auth0.BindingEntry{
		Ref:         auth0.BindingRef{Type: auth0.RefTypeActionID, Value: actionID},
		DisplayName: displayName,
	}
	entries := make([]auth0.BindingEntry, 0, len(current)+1)
	for _, b := range current {
		entries = append(entries, b.Entry())
	}
	if position >= 0 && position <= len(entries) {
		entries = append(entries[:position], append([]auth0.BindingEntry{entry}, entries[position:]...)...)
	} else {
		entries = append(entries, entry)
	}
	return m.client.SetTriggerBindings(ctx, m.trigger, entries)
}

// Unbind drops every binding referencing actionID. When nothing matches,
// the current list comes back unchanged and no write is issued.
func (m *Manager) Unbind(ctx context.Context, actionID string) ([]auth0.Binding, error) {
	current, err := m.client.TriggerBindings(ctx, m.trigger)
	if err != nil {
		return nil, err
	}
	entries := make([]auth0.BindingEntry, 0, len(current))
	for _, b := range current {
		if b.Action.ID == actionID {
			continue
		}
		entries = append(entries, b.Entry())
	}
	if len(entries) == len(current) {
		return current, nil
	}
	return m.client.SetTriggerBindings(ctx, m.trigger, entries)
}

// Reorder sets the list to exactly the given action order. Ids with no
// current binding are silently dropped. The write always happens, even when
// the resulting order matches the current one.
func (m *Manager) Reorder(ctx context.Context, actionIDs []string) ([]auth0.Binding, error) {
	current, err := m.client.TriggerBindings(ctx, m.trigger)
	if err != nil {
		return nil, err
	}
	byAction := make(map[string]auth0.Binding, len(current))
	for _, b := range current {
		byAction[b.Action.ID] = b
	}
	entries := make([]auth0.BindingEntry, 0, len(actionIDs))
	for _, id := range actionIDs {
		b, ok := byAction[id]
		if !ok {
			continue
		}
		entries = append(entries, b.Entry())
	}
	return m.client.SetTriggerBindings(ctx, m.trigger, entries)
}

// IsBound reports whether actionID currently appears in the list.
func (m *Manager) IsBound(ctx context.Context, actionID string) (bool, error) {
	current, err := m.client.TriggerBindings(ctx, m.trigger)
	if err != nil {
		return false, err
	}
	for _, b := range current {
		if b.Action.ID == actionID {
			return true, nil
		}
	}
	return false, nil
}
