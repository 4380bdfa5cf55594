package reports

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/novabehavior/abacore/core/analytics"
)

func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

// window reads optional RFC3339 start/end query parameters. Unparseable
// values are treated as absent.
func window(r *http.Request) (time.Time, time.Time) {
	start, _ := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	end, _ := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	return start, end
}

// NewFrequencyHandler returns an HTTP handler exposing the disruption
// frequency report via GET /api/reports/frequency. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewFrequencyHandler(rep *analytics.Reporter, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start, end := window(r)
		if !start.IsZero() && !end.IsZero() && !start.Before(end) {
			http.Error(w, "start must be before end", http.StatusBadRequest)
			return
		}
		report, err := rep.DisruptionFrequencyReport(r.Context(), start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	})
}

// NewClientProfileHandler exposes client disruption profiles via
// GET /api/reports/clients/{id}.
func NewClientProfileHandler(rep *analytics.Reporter, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/reports/clients/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		start, end := window(r)
		profile, err := rep.ClientDisruptionProfile(r.Context(), id, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
}

// NewRBTProfileHandler exposes caregiver reliability profiles via
// GET /api/reports/rbts/{id}.
func NewRBTProfileHandler(rep *analytics.Reporter, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/reports/rbts/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		start, end := window(r)
		profile, err := rep.RBTDisruptionProfile(r.Context(), id, start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
}
