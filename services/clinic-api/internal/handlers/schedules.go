package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

type ScheduleHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewScheduleHandler(svc *booking.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

type scheduleItem struct {
	ID          string `json:"id"`
	DentistID   string `json:"dentist_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SlotMinutes int    `json:"slot_minutes"`
	Active      bool   `json:"active"`
}

func toScheduleItem(av model.Availability) scheduleItem {
	return scheduleItem{
		ID:          av.ID,
		DentistID:   av.DentistID,
		DayOfWeek:   av.Weekday,
		StartTime:   av.WorkStart.String(),
		EndTime:     av.WorkEnd.String(),
		SlotMinutes: av.SlotMinutes,
		Active:      av.Active,
	}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	dentistID := strings.TrimSpace(r.URL.Query().Get("dentist_id"))
	if dentistID == "" {
		http.Error(w, "dentist_id required", http.StatusBadRequest)
		return
	}

	avs, err := h.svc.ListAvailability(r.Context(), actor, dentistID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]scheduleItem, 0, len(avs))
	for _, av := range avs {
		items = append(items, toScheduleItem(av))
	}
	writeJSON(w, http.StatusOK, items)
}

type createScheduleRequest struct {
	DentistID   string `json:"dentist_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SlotMinutes int    `json:"slot_minutes"`
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.DentistID = strings.TrimSpace(req.DentistID)
	if req.DentistID == "" {
		http.Error(w, "dentist_id required", http.StatusBadRequest)
		return
	}
	start, err := model.ParseClock(strings.TrimSpace(req.StartTime))
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := model.ParseClock(strings.TrimSpace(req.EndTime))
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}

	av, err := h.svc.CreateAvailability(r.Context(), actor, req.DentistID, req.DayOfWeek, start, end, req.SlotMinutes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleItem(av))
}

type updateScheduleRequest struct {
	ID          string  `json:"id"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	SlotMinutes *int    `json:"slot_minutes"`
	Active      *bool   `json:"active"`
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	var ch booking.AvailabilityChanges
	ch.SlotMinutes = req.SlotMinutes
	ch.Active = req.Active
	if req.StartTime != nil {
		start, err := model.ParseClock(strings.TrimSpace(*req.StartTime))
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
		ch.WorkStart = &start
	}
	if req.EndTime != nil {
		end, err := model.ParseClock(strings.TrimSpace(*req.EndTime))
		if err != nil {
			http.Error(w, "invalid end_time", http.StatusBadRequest)
			return
		}
		ch.WorkEnd = &end
	}

	av, err := h.svc.UpdateAvailability(r.Context(), actor, req.ID, ch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleItem(av))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteAvailability(r.Context(), actor, req.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
