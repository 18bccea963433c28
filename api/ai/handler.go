// Package ai exposes the decision engine over HTTP under /api/ai.
package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kilianp07/sanifleet/api/httpjson"
	"github.com/kilianp07/sanifleet/core/alerts"
	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/core/scheduler"
)

// Service is the subset of *engine.Engine used by the handlers.
type Service interface {
	AssessMaintenance(ctx context.Context, units []model.Unit) ([]maintenance.Assessment, error)
	PlanRoute(ctx context.Context, depot model.Coordinates, stops []routing.Stop) (engine.RoutePlan, error)
	PlanMaintenanceRoute(ctx context.Context, depot model.Coordinates, units []model.Unit, minRisk *float64) (engine.MaintenanceRoute, error)
	ForecastDemand(ctx context.Context, req engine.ForecastRequest) (forecast.Result, error)
	SuggestBooking(ctx context.Context, req booking.Request) (booking.Suggestion, error)
	Alerts(ctx context.Context, req engine.AlertsRequest) ([]alerts.Alert, error)
	PlanServiceSchedule(ctx context.Context, units []model.Unit) (scheduler.Plan, error)
}

// Handler serves the decision endpoints.
type Handler struct {
	svc     Service
	maxBody int64
}

// NewHandler returns a handler bounded to maxBody bytes per request.
func NewHandler(svc Service, maxBody int64) *Handler {
	return &Handler{svc: svc, maxBody: maxBody}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r *mux.Router) {
	s := r.PathPrefix("/api/ai").Subrouter()
	s.HandleFunc("/predict-maintenance", h.predictMaintenance).Methods(http.MethodPost)
	s.HandleFunc("/route-optimize", h.routeOptimize).Methods(http.MethodPost)
	s.HandleFunc("/maintenance-route", h.maintenanceRoute).Methods(http.MethodPost)
	s.HandleFunc("/forecast-bookings", h.forecastBookings).Methods(http.MethodPost)
	s.HandleFunc("/smart-booking/suggest", h.suggest).Methods(http.MethodPost)
	s.HandleFunc("/alerts", h.alerts).Methods(http.MethodPost)
	s.HandleFunc("/service-schedule", h.serviceSchedule).Methods(http.MethodPost)
}

type maintenanceRequest struct {
	Units []model.Unit `json:"units"`
}

func (h *Handler) predictMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	res, err := h.svc.AssessMaintenance(r.Context(), req.Units)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	if res == nil {
		res = []maintenance.Assessment{}
	}
	httpjson.Write(w, http.StatusOK, res)
}

type routeRequest struct {
	Depot model.Coordinates `json:"depot"`
	Stops []routing.Stop    `json:"stops"`
}

func (h *Handler) routeOptimize(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	if len(req.Stops) == 0 {
		httpjson.Error(w, fmt.Errorf("%w: at least one stop is required", model.ErrInvalidInput))
		return
	}
	plan, err := h.svc.PlanRoute(r.Context(), req.Depot, req.Stops)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, plan)
}

type maintenanceRouteRequest struct {
	Depot   model.Coordinates `json:"depot"`
	Units   []model.Unit      `json:"units"`
	MinRisk *float64          `json:"minRisk,omitempty"`
}

func (h *Handler) maintenanceRoute(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRouteRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	res, err := h.svc.PlanMaintenanceRoute(r.Context(), req.Depot, req.Units, req.MinRisk)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) forecastBookings(w http.ResponseWriter, r *http.Request) {
	var req engine.ForecastRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	res, err := h.svc.ForecastDemand(r.Context(), req)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	res, err := h.svc.SuggestBooking(r.Context(), req)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	var req engine.AlertsRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	res, err := h.svc.Alerts(r.Context(), req)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) serviceSchedule(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := httpjson.Decode(w, r, h.maxBody, &req); err != nil {
		httpjson.Error(w, err)
		return
	}
	plan, err := h.svc.PlanServiceSchedule(r.Context(), req.Units)
	if err != nil {
		httpjson.Error(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, plan)
}
