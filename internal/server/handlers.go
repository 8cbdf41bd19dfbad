package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/matsen/citegraph/internal/auth"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/viz"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Topic    string `json:"topic" validate:"omitempty,max=100"`
}

type topicRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type addNodeRequest struct {
	ExternalID string `json:"external_id" validate:"required"`
}

type edgeRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Topic     string `json:"topic"`
	ExpiresAt string `json:"expires_at"`
}

type graphResponse struct {
	Topic string       `json:"topic"`
	Stats graph.Stats  `json:"stats"`
	Nodes []paper.Node `json:"nodes"`
	Edges []paper.Edge `json:"edges"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"engines": s.activeEngines(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Username, req.Password, req.Topic)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token != "" {
		s.dropEngine(token)
		if err := s.auth.Logout(r.Context(), token); err != nil {
			s.writeFailure(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	topics, err := s.db.ListTopics(r.Context(), sess.User.ID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active": sess.Topic.Name,
		"topics": names,
	})
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req topicRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "topic name is required")
		return
	}

	t, err := s.db.CreateTopic(r.Context(), sess.User.ID, name)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleActivateTopic(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	updated, err := s.auth.SwitchTopic(r.Context(), sess.Token, chi.URLParam(r, "name"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.dropEngine(sess.Token)
	s.writeJSON(w, http.StatusOK, toSessionResponse(updated))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	results, err := s.searcher.SearchByTitle(r.Context(), q)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	e, err := s.engineFor(r.Context(), sess)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	snap := e.Snapshot()
	s.writeJSON(w, http.StatusOK, graphResponse{
		Topic: sess.Topic.Name,
		Stats: graph.Stats{Nodes: len(snap.Nodes), Edges: len(snap.Edges)},
		Nodes: snap.Nodes,
		Edges: snap.Edges,
	})
}

// handleAddNode looks the work up and adds it to the active graph.
func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	id := openalex.NormalizeID(req.ExternalID)
	if !openalex.IsWorkID(id) {
		s.writeFailure(w, r, openalex.ErrInvalidID)
		return
	}

	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if e.HasNode(id) {
		s.writeFailure(w, r, &paper.ScopeConflictError{ExternalID: id})
		return
	}

	meta, err := s.meta.GetMetadata(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	// OpenAlex may answer with a merged work under another ID.
	if meta.ID != id && e.HasNode(meta.ID) {
		s.writeFailure(w, r, &paper.ScopeConflictError{ExternalID: meta.ID})
		return
	}

	n := meta.Node()
	if err := e.AddNode(r.Context(), n); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var fields paper.NodeFields
	if err := s.decode(w, r, &fields); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	n, err := e.UpdateNode(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if err := e.RemoveNode(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	added, err := e.AddEdge(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, map[string]bool{"added": added})
}

func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if err := e.RemoveEdge(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "target")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	e, err := s.engineFor(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	added, err := e.AutoComplete(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Int("added", added).Msg("auto-completion stopped")
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"added": added,
		"stats": e.Stats(),
	})
}

// handleGraphPage renders the active graph as an interactive page.
func (s *Server) handleGraphPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	e, err := s.engineFor(r.Context(), sess)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	opts := viz.DefaultOptions()
	opts.Title = sess.Topic.Name
	if layout := r.URL.Query().Get("layout"); layout != "" {
		opts.Layout = layout
	}

	html, err := viz.GenerateHTML(viz.FromGraph(e.Snapshot()), opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		s.logger.Debug().Err(err).Msg("writing graph page")
	}
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func toSessionResponse(sess *auth.Session) sessionResponse {
	return sessionResponse{
		Token:     sess.Token,
		Username:  sess.User.Username,
		Topic:     sess.Topic.Name,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, paper.ErrEmptyExternalID),
		errors.Is(err, paper.ErrEmptyLabel),
		errors.Is(err, paper.ErrEmptySourceID),
		errors.Is(err, paper.ErrEmptyTargetID),
		errors.Is(err, paper.ErrSelfEdge),
		errors.Is(err, openalex.ErrInvalidID),
		errors.Is(err, auth.ErrEmptyUsername),
		errors.Is(err, auth.ErrEmptyPassword):
		return http.StatusBadRequest
	case auth.IsUnauthenticated(err):
		return http.StatusUnauthorized
	case auth.IsForbidden(err):
		return http.StatusForbidden
	case paper.IsNotFound(err), openalex.IsNotFound(err):
		return http.StatusNotFound
	case paper.IsConflict(err):
		return http.StatusConflict
	case openalex.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes err with its mapped status. Internal errors are logged
// and not echoed to the client.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	s.writeJSON(w, status, errorResponse{Error: errorBody{Message: msg, Status: status}})
}

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Message: message, Status: status}})
}
