// Package auth0test runs an in-memory fake of the Management API slice the
// client touches, with per-route call counters for asserting how many
// network calls an operation performed.
package auth0test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"actionsflow/internal/auth0"
)

type Server struct {
	URL string

	mu   sync.Mutex
	next int

	// TokenStatus, when non-zero, makes the token endpoint fail with that
	// HTTP status. TokenBody overrides the failure body.
	TokenStatus int
	TokenBody   string
	// ExpiresIn is the lifetime reported for issued tokens (default 86400).
	ExpiresIn int

	Actions  []auth0.Action
	Bindings []auth0.Binding

	// Calls counts requests per route key: token, list, create, update,
	// delete, deploy, getBindings, setBindings.
	Calls map[string]int

	// LastSetBindings records the most recent binding replace payload.
	LastSetBindings []auth0.BindingEntry
}

func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{Calls: map[string]int{}}

	r := chi.NewRouter()
	r.Post("/oauth/token", s.handleToken)
	r.Get("/api/v2/actions/actions", s.handleList)
	r.Post("/api/v2/actions/actions", s.handleCreate)
	r.Patch("/api/v2/actions/actions/{id}", s.handleUpdate)
	r.Delete("/api/v2/actions/actions/{id}", s.handleDelete)
	r.Post("/api/v2/actions/actions/{id}/deploy", s.handleDeploy)
	r.Get("/api/v2/actions/triggers/{trigger}/bindings", s.handleGetBindings)
	r.Patch("/api/v2/actions/triggers/{trigger}/bindings", s.handleSetBindings)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

// Client returns an auth0.Client pointed at the fake.
func (s *Server) Client() *auth0.Client {
	c := auth0.New(auth0.Config{
		Domain:       "t.example.auth0.com",
		ClientID:     "fake-client-id",
		ClientSecret: "fake-client-secret",
	})
	c.BaseURL = s.URL
	return c
}

// AddAction seeds an action, assigning an id, and returns it.
func (s *Server) AddAction(a auth0.Action) auth0.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = s.newID("act")
	}
	s.Actions = append(s.Actions, a)
	return a
}

// AddBinding seeds one binding at the end of the list.
func (s *Server) AddBinding(actionID, actionName, displayName string) auth0.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := auth0.Binding{
		ID:          s.newID("bind"),
		DisplayName: displayName,
		Action:      auth0.BindingAction{ID: actionID, Name: actionName},
	}
	s.Bindings = append(s.Bindings, b)
	return b
}

func (s *Server) newID(prefix string) string {
	s.next++
	return fmt.Sprintf("%s_%d", prefix, s.next)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["token"]++
	if s.TokenStatus != 0 {
		body := s.TokenBody
		if body == "" {
			body = `{"error":"access_denied","error_description":"Unauthorized"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.TokenStatus)
		fmt.Fprint(w, body)
		return
	}
	expires := s.ExpiresIn
	if expires == 0 {
		expires = 86400
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("tok-%d", s.Calls["token"]),
		"token_type":   "Bearer",
		"expires_in":   expires,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["list"]++
	writeJSON(w, http.StatusOK, map[string]any{"actions": s.Actions})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["create"]++
	var a auth0.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	a.ID = s.newID("act")
	a.Status = "built"
	s.Actions = append(s.Actions, a)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["update"]++
	id := chi.URLParam(r, "id")
	var a auth0.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			a.ID = id
			a.Status = s.Actions[i].Status
			s.Actions[i] = a
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "action not found"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["delete"]++
	id := chi.URLParam(r, "id")
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			s.Actions = append(s.Actions[:i], s.Actions[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "action not found"})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["deploy"]++
	id := chi.URLParam(r, "id")
	for i := range s.Actions {
		if s.Actions[i].ID == id {
			s.Actions[i].Status = "deployed"
			writeJSON(w, http.StatusOK, s.Actions[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "action not found"})
}

func (s *Server) handleGetBindings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["getBindings"]++
	writeJSON(w, http.StatusOK, map[string]any{"bindings": s.Bindings})
}

func (s *Server) handleSetBindings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls["setBindings"]++
	var in struct {
		Bindings []auth0.BindingEntry `json:"bindings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	s.LastSetBindings = in.Bindings

	trigger := chi.URLParam(r, "trigger")
	rebuilt := make([]auth0.Binding, 0, len(in.Bindings))
	for _, e := range in.Bindings {
		b := auth0.Binding{
			ID:          s.newID("bind"),
			TriggerID:   trigger,
			DisplayName: e.DisplayName,
			Action:      auth0.BindingAction{ID: e.Ref.Value},
		}
		for _, a := range s.Actions {
			if a.ID == e.Ref.Value {
				b.Action.Name = a.Name
			}
		}
		rebuilt = append(rebuilt, b)
	}
	s.Bindings = rebuilt
	writeJSON(w, http.StatusOK, map[string]any{"bindings": s.Bindings})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
