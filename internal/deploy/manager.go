// Package deploy makes create-or-update of the post-login action
// idempotent. The rendered action name is the only idempotence key: every
// call re-resolves the action by listing the tenant and matching on name,
// never by a remembered id.
package deploy

import (
	"context"
	"strconv"
	"strings"

	"actionsflow/internal/auth0"
)

const (
	// TriggerID is the fixed execution point the managed action binds to.
	TriggerID      = "post-login"
	triggerVersion = "v3"
	actionRuntime  = "node18"

	timeoutSecretName     = "TIMEOUT_MS"
	skipEnrollmentSecret  = "SKIP_ENROLLMENT"
	skipDeviceCheckSecret = "SKIP_DEVICE_CHECK"
)

// Config is the caller-supplied naming and secret configuration. Nothing in
// it is product specific; every name flows in from the host application.
type Config struct {
	ActionNamePrefix         string
	MetadataKey              string
	ClaimsNamespace          string
	CallbackURL              string
	CallbackAPIKey           string
	CallbackURLSecretName    string
	CallbackAPIKeySecretName string
	DefaultTimeoutMS         int
}

const (
	defaultCallbackURLSecret = "CALLBACK_URL"
	defaultCallbackKeySecret = "CALLBACK_API_KEY"
	defaultTimeoutMS         = 5000
)

func (c Config) withDefaults() Config {
	if c.CallbackURLSecretName == "" {
		c.CallbackURLSecretName = defaultCallbackURLSecret
	}
	if c.CallbackAPIKeySecretName == "" {
		c.CallbackAPIKeySecretName = defaultCallbackKeySecret
	}
	if c.DefaultTimeoutMS <= 0 {
		c.DefaultTimeoutMS = defaultTimeoutMS
	}
	return c
}

// Options toggles per-deploy behavior of the rendered action.
type Options struct {
	// SkipEnrollment makes the action pass through users who have not
	// enrolled with the callback service yet.
	SkipEnrollment bool
	// SkipDeviceCheck makes the action skip the device posture callback.
	SkipDeviceCheck bool
}

// Result reports the outcome of Deploy and Undeploy. Error is a message
// rather than an error value: these operations never fail loudly, the
// caller always gets an envelope.
type Result struct {
	Success  bool   `json:"success"`
	ActionID string `json:"actionId,omitempty"`
	Deployed bool   `json:"deployed"`
	Error    string `json:"error,omitempty"`
}

type Manager struct {
	client *auth0.Client
	cfg    Config
}

func NewManager(client *auth0.Client, cfg Config) *Manager {
	return &Manager{client: client, cfg: cfg.withDefaults()}
}

func (m *Manager) actionName() string {
	return m.cfg.ActionNamePrefix + BundleNamePostLogin
}

// Deploy creates the post-login action when no action with the rendered
// name exists, updates it in place when one does, then activates the
// result. Calling it twice with the same configuration converges on one
// action: the second call updates, never duplicates.
func (m *Manager) Deploy(ctx context.Context, opts Options) Result {
	bundle, err := m.Bundle(BundleNamePostLogin)
	if err != nil {
		return Result{Error: err.Error()}
	}

	desired := auth0.Action{
		Name:    m.actionName(),
		Code:    bundle.Code,
		Runtime: actionRuntime,
		SupportedTriggers: []auth0.Trigger{
			{ID: TriggerID, Version: triggerVersion},
		},
		Secrets: m.secrets(opts),
	}

	existing, err := m.findByName(ctx, desired.Name)
	if err != nil {
		return Result{Error: err.Error()}
	}

	var saved *auth0.Action
	if existing != nil {
		saved, err = m.client.UpdateAction(ctx, existing.ID, desired)
	} else {
		saved, err = m.client.CreateAction(ctx, desired)
	}
	if err != nil {
		return Result{Error: err.Error()}
	}
	if saved.ID == "" && existing != nil {
		saved.ID = existing.ID
	}

	if err := m.client.DeployAction(ctx, saved.ID); err != nil {
		// Created-but-not-activated is reported as a failure; a full retry
		// is safe because the next Deploy re-resolves by name and updates.
		return Result{ActionID: saved.ID, Error: err.Error()}
	}
	return Result{Success: true, ActionID: saved.ID, Deployed: true}
}

// Undeploy removes the action's trigger binding and deletes it. When no
// action with the rendered name exists the call is a successful no-op, so
// retrying after a partial failure is always safe.
func (m *Manager) Undeploy(ctx context.Context) Result {
	existing, err := m.findByName(ctx, m.actionName())
	if err != nil {
		return Result{Error: err.Error()}
	}
	if existing == nil {
		return Result{Success: true, Deployed: false}
	}

	current, err := m.client.TriggerBindings(ctx, TriggerID)
	if err != nil {
		return Result{Error: err.Error()}
	}
	keep := make([]auth0.BindingEntry, 0, len(current))
	for _, b := range current {
		if b.Action.ID == existing.ID {
			continue
		}
		keep = append(keep, b.Entry())
	}
	if len(keep) != len(current) {
		if _, err := m.client.SetTriggerBindings(ctx, TriggerID, keep); err != nil {
			return Result{Error: err.Error()}
		}
	}

	if err := m.client.DeleteAction(ctx, existing.ID); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Success: true, Deployed: false}
}

// ListDeployed returns the tenant actions whose name carries the configured
// prefix. Read-only.
func (m *Manager) ListDeployed(ctx context.Context) ([]auth0.Action, error) {
	actions, err := m.client.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	var out []auth0.Action
	for _, a := range actions {
		if strings.HasPrefix(a.Name, m.cfg.ActionNamePrefix) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Manager) findByName(ctx context.Context, name string) (*auth0.Action, error) {
	actions, err := m.client.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range actions {
		if actions[i].Name == name {
			return &actions[i], nil
		}
	}
	return nil, nil
}

func (m *Manager) secrets(opts Options) []auth0.Secret {
	s := []auth0.Secret{
		{Name: m.cfg.CallbackURLSecretName, Value: m.cfg.CallbackURL},
		{Name: m.cfg.CallbackAPIKeySecretName, Value: m.cfg.CallbackAPIKey},
		{Name: timeoutSecretName, Value: strconv.Itoa(m.cfg.DefaultTimeoutMS)},
	}
	if opts.SkipEnrollment {
		s = append(s, auth0.Secret{Name: skipEnrollmentSecret, Value: "true"})
	}
	if opts.SkipDeviceCheck {
		s = append(s, auth0.Secret{Name: skipDeviceCheckSecret, Value: "true"})
	}
	return s
}
