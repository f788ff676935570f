package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/booking"
	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

type AppointmentHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *booking.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type appointmentItem struct {
	ID           string `json:"id"`
	Reference    string `json:"reference"`
	ClientID     string `json:"client_id"`
	DentistID    string `json:"dentist_id"`
	ServiceID    string `json:"service_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	AdminNotes   string `json:"admin_notes,omitempty"`
	CancelledBy  string `json:"cancelled_by,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:           a.ID,
		Reference:    a.Reference,
		ClientID:     a.ClientID,
		DentistID:    a.DentistID,
		ServiceID:    a.ServiceID,
		Date:         model.DateString(a.Date),
		StartTime:    a.Start.String(),
		EndTime:      a.End.String(),
		Status:       string(a.Status),
		Notes:        a.Notes,
		AdminNotes:   a.AdminNotes,
		CancelledBy:  string(a.CancelledBy),
		CancelReason: a.CancelReason,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// Slots is the public slot listing: no auth, rate limited upstream.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dentistID := strings.TrimSpace(r.URL.Query().Get("dentist_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dentistID == "" || dateStr == "" {
		http.Error(w, "dentist_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := model.ParseDate(dateStr)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.ListAvailableSlots(r.Context(), dentistID, date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.String(),
			EndTime:   s.End.String(),
			Available: s.Available,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createAppointmentRequest struct {
	ClientID  string `json:"client_id"`
	DentistID string `json:"dentist_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.DentistID = strings.TrimSpace(req.DentistID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.DentistID == "" || req.ServiceID == "" {
		http.Error(w, "dentist_id and service_id are required", http.StatusBadRequest)
		return
	}

	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
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

	appt, err := h.svc.CreateAppointment(r.Context(), actor, booking.CreateRequest{
		ClientID:  strings.TrimSpace(req.ClientID),
		DentistID: req.DentistID,
		ServiceID: req.ServiceID,
		Date:      date,
		Start:     start,
		End:       end,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := booking.AppointmentFilter{
		ClientID:  strings.TrimSpace(q.Get("client_id")),
		DentistID: strings.TrimSpace(q.Get("dentist_id")),
		Status:    model.Status(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		date, err := model.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		filter.Date = &date
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}

	appts, err := h.svc.ListAppointments(r.Context(), actor, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), actor, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

type updateAppointmentRequest struct {
	ID         string  `json:"id"`
	DentistID  *string `json:"dentist_id"`
	ServiceID  *string `json:"service_id"`
	Date       *string `json:"date"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Notes      *string `json:"notes"`
	AdminNotes *string `json:"admin_notes"`
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	var ch booking.Changes
	ch.DentistID = req.DentistID
	ch.ServiceID = req.ServiceID
	ch.Notes = req.Notes
	ch.AdminNotes = req.AdminNotes
	if req.Date != nil {
		date, err := model.ParseDate(strings.TrimSpace(*req.Date))
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		ch.Date = &date
	}
	if req.StartTime != nil {
		start, err := model.ParseClock(strings.TrimSpace(*req.StartTime))
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
		ch.Start = &start
	}
	if req.EndTime != nil {
		end, err := model.ParseClock(strings.TrimSpace(*req.EndTime))
		if err != nil {
			http.Error(w, "invalid end_time", http.StatusBadRequest)
			return
		}
		ch.End = &end
	}

	appt, err := h.svc.UpdateAppointment(r.Context(), actor, req.ID, ch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

type cancelAppointmentRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), actor, req.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

type setStatusRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	AdminNotes   string `json:"admin_notes"`
	CancelReason string `json:"cancel_reason"`
}

func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Status = strings.TrimSpace(req.Status)
	if req.ID == "" || req.Status == "" {
		http.Error(w, "id and status are required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.SetStatus(r.Context(), actor, req.ID, model.Status(req.Status),
		strings.TrimSpace(req.AdminNotes), strings.TrimSpace(req.CancelReason))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

func (h *AppointmentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	stats, err := h.svc.Dashboard(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	recent := make([]appointmentItem, 0, len(stats.RecentAppointments))
	for _, a := range stats.RecentAppointments {
		recent = append(recent, toItem(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments_today":     stats.AppointmentsToday,
		"pending_appointments":   stats.PendingAppointments,
		"confirmed_appointments": stats.ConfirmedAppointments,
		"completed_today":        stats.CompletedToday,
		"total_clients":          stats.TotalClients,
		"active_dentists":        stats.ActiveDentists,
		"recent_appointments":    recent,
	})
}
