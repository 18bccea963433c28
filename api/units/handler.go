package units

import (
	"net/http"

	"github.com/kilianp07/sanifleet/api/httpjson"
	"github.com/kilianp07/sanifleet/core/unitstatus"
)

// Lister returns stored unit snapshots. *engine.Engine implements it.
type Lister interface {
	UnitStatus(unitstatus.Filter) []unitstatus.Status
}

// NewStatusHandler returns an HTTP handler exposing unit status data via GET /api/units/status.
func NewStatusHandler(l Lister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := unitstatus.Filter{Location: r.URL.Query().Get("location")}
		entries := l.UnitStatus(f)
		if entries == nil {
			entries = []unitstatus.Status{}
		}
		httpjson.Write(w, http.StatusOK, entries)
	})
}
