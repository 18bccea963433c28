package decisions

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/sanifleet/api/httpjson"
	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/model"
)

// Source queries recorded decisions. *engine.Engine implements it.
type Source interface {
	Decisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.Record, error)
}

// NewHandler returns an HTTP handler exposing the decision log via GET /api/decisions.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(src Source, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				httpjson.Write(w, http.StatusUnauthorized, httpjson.ErrorBody{Error: "unauthorized"})
				return
			}
		}
		q, err := parseQuery(r)
		if err != nil {
			httpjson.Error(w, err)
			return
		}
		records, err := src.Decisions(r.Context(), q)
		if err != nil {
			httpjson.Error(w, err)
			return
		}
		if records == nil {
			records = []decisionlog.Record{}
		}
		httpjson.Write(w, http.StatusOK, records)
	})
}

func parseQuery(r *http.Request) (decisionlog.Query, error) {
	v := r.URL.Query()
	q := decisionlog.Query{
		Operation: decisionlog.Operation(v.Get("operation")),
		UnitID:    v.Get("unit_id"),
	}
	var err error
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("%w: start must be RFC3339", model.ErrInvalidInput)
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("%w: end must be RFC3339", model.ErrInvalidInput)
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: limit must be a non-negative integer", model.ErrInvalidInput)
		}
		q.Limit = n
	}
	return q, nil
}
