// Package httpapi exposes the deployment and binding managers as a JSON
// API for the management UI. Handlers are thin adapters: they decode
// input, call one manager operation, and render the result or an error
// envelope. Vendor error text is sanitized before leaving the process.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"actionsflow/internal/auth0"
	"actionsflow/internal/bindings"
	"actionsflow/internal/deploy"
	"actionsflow/internal/settings"
)

// Deployer is the deployment manager surface the API mounts.
type Deployer interface {
	Deploy(ctx context.Context, opts deploy.Options) deploy.Result
	Undeploy(ctx context.Context) deploy.Result
	ListDeployed(ctx context.Context) ([]auth0.Action, error)
	Bundle(name string) (deploy.Bundle, error)
}

// Binder is the binding manager surface the API mounts.
type Binder interface {
	List(ctx context.Context) ([]auth0.Binding, error)
	Bind(ctx context.Context, actionID, displayName string, position int) ([]auth0.Binding, error)
	Unbind(ctx context.Context, actionID string) ([]auth0.Binding, error)
	Reorder(ctx context.Context, actionIDs []string) ([]auth0.Binding, error)
	IsBound(ctx context.Context, actionID string) (bool, error)
}

// ConnectionTester reports tenant reachability.
type ConnectionTester interface {
	TestConnection(ctx context.Context) auth0.ConnectionResult
}

// SettingsStore is the tenant-settings CRUD surface. Satisfied by
// *settings.Store; tests substitute a memory implementation.
type SettingsStore interface {
	Upsert(ctx context.Context, t settings.TenantSettings) (string, error)
	Get(ctx context.Context, tenant string) (*settings.TenantSettings, error)
	Delete(ctx context.Context, tenant string) error
	List(ctx context.Context) ([]settings.TenantSettings, error)
}

type Handler struct {
	deployer Deployer
	binder   Binder
	tester   ConnectionTester
	store    SettingsStore // nil when no database is configured
	log      *slog.Logger
	secrets  []string // substrings scrubbed from every surfaced error
}

func NewHandler(deployer Deployer, binder Binder, tester ConnectionTester, store SettingsStore, log *slog.Logger, secrets []string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		deployer: deployer,
		binder:   binder,
		tester:   tester,
		store:    store,
		log:      log,
		secrets:  secrets,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(r chi.Router) {
		r.Post("/test-connection", h.testConnection)

		r.Post("/deploy", h.deploy)
		r.Post("/undeploy", h.undeploy)
		r.Get("/actions", h.listActions)
		r.Get("/actions/bundle/{name}", h.bundle)

		r.Get("/bindings", h.listBindings)
		r.Post("/bindings", h.bind)
		r.Delete("/bindings/{actionID}", h.unbind)
		r.Put("/bindings/order", h.reorder)

		if h.store != nil {
			r.Get("/settings", h.listSettings)
			r.Get("/settings/{tenant}", h.getSettings)
			r.Put("/settings/{tenant}", h.putSettings)
			r.Delete("/settings/{tenant}", h.deleteSettings)
		}
	})
}

func (h *Handler) testConnection(w http.ResponseWriter, r *http.Request) {
	res := h.tester.TestConnection(r.Context())
	res.Error = settings.Sanitize(res.Error, h.secrets...)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deploy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SkipEnrollment  bool `json:"skipEnrollment"`
		SkipDeviceCheck bool `json:"skipDeviceCheck"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	res := h.deployer.Deploy(r.Context(), deploy.Options{
		SkipEnrollment:  in.SkipEnrollment,
		SkipDeviceCheck: in.SkipDeviceCheck,
	})
	h.writeResult(w, res)
}

func (h *Handler) undeploy(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.deployer.Undeploy(r.Context()))
}

// writeResult renders a deploy/undeploy envelope. The manager never
// errors; failure rides inside the result, surfaced as 502 because the
// cause is always the upstream tenant.
func (h *Handler) writeResult(w http.ResponseWriter, res deploy.Result) {
	res.Error = settings.Sanitize(res.Error, h.secrets...)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (h *Handler) listActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.deployer.ListDeployed(r.Context())
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	if actions == nil {
		actions = []auth0.Action{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *Handler) bundle(w http.ResponseWriter, r *http.Request) {
	b, err := h.deployer.Bundle(chi.URLParam(r, "name"))
	if errors.Is(err, deploy.ErrUnknownBundle) {
		h.error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.error(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) listBindings(w http.ResponseWriter, r *http.Request) {
	list, err := h.binder.List(r.Context())
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.writeBindings(w, list)
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActionID    string `json:"actionId"`
		DisplayName string `json:"displayName"`
		Position    *int   `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.ActionID == "" {
		h.error(w, http.StatusUnprocessableEntity, "actionId is required")
		return
	}
	position := -1
	if in.Position != nil {
		position = *in.Position
	}
	list, err := h.binder.Bind(r.Context(), in.ActionID, in.DisplayName, position)
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.writeBindings(w, list)
}

func (h *Handler) unbind(w http.ResponseWriter, r *http.Request) {
	list, err := h.binder.Unbind(r.Context(), chi.URLParam(r, "actionID"))
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.writeBindings(w, list)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActionIDs []string `json:"actionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(in.ActionIDs) == 0 {
		h.error(w, http.StatusUnprocessableEntity, "actionIds is required")
		return
	}
	list, err := h.binder.Reorder(r.Context(), in.ActionIDs)
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.writeBindings(w, list)
}

func (h *Handler) writeBindings(w http.ResponseWriter, list []auth0.Binding) {
	if list == nil {
		list = []auth0.Binding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bindings": list})
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []settings.TenantSettings{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": list})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Get(r.Context(), chi.URLParam(r, "tenant"))
	if errors.Is(err, settings.ErrNotFound) {
		h.error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.error(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Domain           string `json:"domain"`
		ClientID         string `json:"clientId"`
		ClientSecret     string `json:"clientSecret"`
		ActionNamePrefix string `json:"actionNamePrefix"`
		MetadataKey      string `json:"metadataKey"`
		ClaimsNamespace  string `json:"claimsNamespace"`
		CallbackURL      string `json:"callbackUrl"`
		CallbackAPIKey   string `json:"callbackApiKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Domain == "" || in.ClientID == "" || in.ClientSecret == "" {
		h.error(w, http.StatusUnprocessableEntity, "domain, clientId and clientSecret are required")
		return
	}
	if in.CallbackAPIKey == "" {
		in.CallbackAPIKey = settings.GenerateCallbackKey()
	}
	id, err := h.store.Upsert(r.Context(), settings.TenantSettings{
		Tenant:           chi.URLParam(r, "tenant"),
		Domain:           in.Domain,
		ClientID:         in.ClientID,
		ClientSecret:     in.ClientSecret,
		ActionNamePrefix: in.ActionNamePrefix,
		MetadataKey:      in.MetadataKey,
		ClaimsNamespace:  in.ClaimsNamespace,
		CallbackURL:      in.CallbackURL,
		CallbackAPIKey:   in.CallbackAPIKey,
	})
	if err != nil {
		h.error(w, http.StatusInternalServerError, settings.Sanitize(err.Error(), in.ClientSecret, in.CallbackAPIKey))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) deleteSettings(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), chi.URLParam(r, "tenant"))
	if errors.Is(err, settings.ErrNotFound) {
		h.error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.error(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// upstreamError maps Management API failures to 502 and everything else to
// 500. Binding manager errors land here: they propagate loudly by design.
func (h *Handler) upstreamError(w http.ResponseWriter, err error) {
	var apiErr *auth0.APIRequestError
	var authErr *auth0.AuthenticationError
	status := http.StatusInternalServerError
	if errors.As(err, &apiErr) || errors.As(err, &authErr) {
		status = http.StatusBadGateway
	}
	h.error(w, status, err.Error())
}

func (h *Handler) error(w http.ResponseWriter, status int, msg string) {
	msg = settings.Sanitize(msg, h.secrets...)
	if status >= 500 {
		h.log.Error("request failed", "status", status, "error", msg)
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewRouter builds a chi router with the handler mounted, for callers that
// don't need to compose further.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

var _ Deployer = (*deploy.Manager)(nil)
var _ Binder = (*bindings.Manager)(nil)
var _ ConnectionTester = (*auth0.Client)(nil)
var _ SettingsStore = (*settings.Store)(nil)
