package reports

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/core/auditlog"
)

// NewAuditTrailHandler exposes chronological change histories via
// GET /api/audit/{session|client|rbt}/{id}.
func NewAuditTrailHandler(rep *analytics.Reporter, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/audit/")
		parts := strings.Split(path, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.NotFound(w, r)
			return
		}
		var entity auditlog.EntityType
		switch parts[0] {
		case "session":
			entity = auditlog.EntitySession
		case "client":
			entity = auditlog.EntityClient
		case "rbt":
			entity = auditlog.EntityRBT
		default:
			http.Error(w, "unknown entity "+parts[0], http.StatusBadRequest)
			return
		}
		start, end := window(r)
		trail, err := rep.AuditTrail(r.Context(), entity, parts[1], start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(trail)
	})
}
