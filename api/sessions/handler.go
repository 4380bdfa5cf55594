package sessions

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/novabehavior/abacore/core/schedule"
)

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind schedule.ResultKind) int {
	switch kind {
	case schedule.ResultSuccess:
		return http.StatusOK
	case schedule.ResultValidationFailed:
		return http.StatusUnprocessableEntity
	case schedule.ResultConflict:
		return http.StatusConflict
	case schedule.ResultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewScheduleHandler returns an HTTP handler scheduling one session via
// POST /api/sessions. A dry_run=true query runs validation and conflict
// detection without persisting. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewScheduleHandler(s *schedule.Scheduler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req schedule.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var res schedule.Result
		if r.URL.Query().Get("dry_run") == "true" {
			res = s.PreviewSession(r.Context(), req)
		} else {
			res = s.ScheduleSession(r.Context(), req)
		}
		writeJSON(w, statusFor(res.Kind), res)
	})
}

// NewBulkScheduleHandler returns an HTTP handler scheduling a batch via
// POST /api/sessions/bulk. Entries are processed independently.
func NewBulkScheduleHandler(s *schedule.Scheduler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Requests     []schedule.Request `json:"requests"`
			ValidateOnly bool               `json:"validate_only"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res := s.BulkScheduleSessions(r.Context(), body.Requests, body.ValidateOnly)
		writeJSON(w, http.StatusOK, res)
	})
}

// NewTransitionHandler returns an HTTP handler driving session lifecycle
// transitions via POST /api/sessions/{id}/{confirm|complete|no_show}.
// The optional JSON body carries reason and actor.
func NewTransitionHandler(s *schedule.Scheduler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		parts := strings.Split(path, "/")
		if len(parts) != 2 || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		id, action := parts[0], parts[1]
		var body struct {
			Reason string `json:"reason"`
			Actor  string `json:"actor"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		var res schedule.Result
		switch action {
		case "confirm":
			res = s.ConfirmSession(r.Context(), id, body.Actor)
		case "complete":
			res = s.CompleteSession(r.Context(), id, body.Actor)
		case "no_show":
			res = s.MarkNoShow(r.Context(), id, body.Reason, body.Actor)
		default:
			http.NotFound(w, r)
			return
		}
		writeJSON(w, statusFor(res.Kind), res)
	})
}
