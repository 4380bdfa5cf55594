package sessions

import (
	"encoding/json"
	"net/http"

	"github.com/novabehavior/abacore/core/recovery"
)

// NewCancelHandler returns an HTTP handler cancelling one session via
// POST /api/sessions/cancel. When find_alternatives is set the response
// carries ranked placements for the freed slot.
func NewCancelHandler(e *recovery.Engine, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req recovery.CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res := e.CancelSession(r.Context(), req)
		writeJSON(w, statusFor(res.Kind), res)
	})
}

// NewBulkCancelHandler returns an HTTP handler cancelling a batch via
// POST /api/sessions/cancel/bulk. Entries are processed independently.
func NewBulkCancelHandler(e *recovery.Engine, token string) http.Handler {
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
			SessionIDs       []string `json:"session_ids"`
			Reason           string   `json:"reason"`
			Actor            string   `json:"actor"`
			FindAlternatives bool     `json:"find_alternatives"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res := e.BulkCancelSessions(r.Context(), body.SessionIDs, body.Reason, body.Actor, body.FindAlternatives)
		writeJSON(w, http.StatusOK, res)
	})
}
