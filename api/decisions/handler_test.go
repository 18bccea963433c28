package decisions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/sanifleet/core/decisionlog"
)

type storeSource struct{ decisionlog.Store }

func (s storeSource) Decisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.Record, error) {
	return s.Query(ctx, q)
}

func seeded(t *testing.T) storeSource {
	t.Helper()
	store := decisionlog.NewMemoryStore(0)
	base := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	recs := []decisionlog.Record{
		{ID: "1", Timestamp: base, Operation: decisionlog.OpMaintenance, UnitIDs: []string{"u1", "u2"}},
		{ID: "2", Timestamp: base.Add(time.Hour), Operation: decisionlog.OpRoute, UnitIDs: []string{"u2"}},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), Operation: decisionlog.OpForecast},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return storeSource{store}
}

func get(h http.Handler, url, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) []decisionlog.Record {
	t.Helper()
	var out []decisionlog.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHandler_AuthAndFilters(t *testing.T) {
	h := NewHandler(seeded(t), "tok")

	rr := get(h, "/api/decisions?unit_id=u2", "tok")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if out := decode(t, rr); len(out) != 2 {
		t.Fatalf("expected 2 records got %d", len(out))
	}

	rr = get(h, "/api/decisions?operation=route", "tok")
	if out := decode(t, rr); len(out) != 1 || out[0].ID != "2" {
		t.Fatalf("unexpected operation filter %#v", out)
	}

	rr = get(h, "/api/decisions?start=2025-06-11T08:30:00Z&end=2025-06-11T09:30:00Z", "tok")
	if out := decode(t, rr); len(out) != 1 || out[0].ID != "2" {
		t.Fatalf("unexpected time filter %#v", out)
	}

	rr = get(h, "/api/decisions", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized got %d", rr.Code)
	}
	rr = get(h, "/api/decisions", "wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized got %d", rr.Code)
	}
}

func TestHandler_Limit(t *testing.T) {
	h := NewHandler(seeded(t), "")
	out := decode(t, get(h, "/api/decisions?limit=1", ""))
	if len(out) != 1 || out[0].ID != "3" {
		t.Fatalf("expected most recent record got %#v", out)
	}
}

func TestHandler_BadParams(t *testing.T) {
	h := NewHandler(seeded(t), "")
	for _, u := range []string{
		"/api/decisions?start=yesterday",
		"/api/decisions?end=2025-13-01",
		"/api/decisions?limit=-2",
		"/api/decisions?limit=ten",
	} {
		if rr := get(h, u, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", u, rr.Code)
		}
	}
}
