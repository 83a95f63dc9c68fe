package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/application"
)

type scheduleService interface {
	CreateOrUpdateSchedule(ctx context.Context, params application.CreateOrUpdateScheduleParams) (application.ScheduleResult, error)
	ListSchedules(ctx context.Context, principal application.Principal) ([]application.ScheduleRule, error)
	DeleteSchedule(ctx context.Context, params application.DeleteScheduleParams) (int, error)
	RegenerateAll(ctx context.Context, params application.RegenerateParams) (int, error)
}

type ScheduleHandler struct {
	service   scheduleService
	clock     RequestClock
	responder responder
}

func NewScheduleHandler(service scheduleService, clock RequestClock, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, clock: clock, responder: newResponder(logger)}
}

// Create persists a new weekly time-slot, or reshapes an existing one when
// the body carries a rule_id. The response reports how many materialized
// occurrences the change deleted and created.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	today, err := h.clock.referenceToday(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	result, err := h.service.CreateOrUpdateSchedule(r.Context(), application.CreateOrUpdateScheduleParams{
		Principal:      principal,
		Input:          req.toInput(),
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if req.RuleID != "" {
		status = http.StatusOK
	}
	h.responder.writeJSON(r.Context(), w, status, scheduleResponse{
		Schedule:       toScheduleDTO(result.Rule),
		Reconciliation: toReconciliationDTO(result.Reconciliation),
	})
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	rules, err := h.service.ListSchedules(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{Schedules: toScheduleDTOs(rules)})
}

// Delete removes a time-slot and reports how many future pending occurrences
// went with it. Marked and past occurrences stay as history.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	today, err := h.clock.referenceToday(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	deleted, err := h.service.DeleteSchedule(r.Context(), application.DeleteScheduleParams{
		Principal:      principal,
		RuleID:         scheduleID,
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, deleteScheduleResponse{DeletedCount: deleted})
}

// Regenerate re-materializes every time-slot of the acting user. Existing
// occurrences absorb repeated runs, so the endpoint is safe to call anytime.
func (h *ScheduleHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	today, err := h.clock.referenceToday(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	created, err := h.service.RegenerateAll(r.Context(), application.RegenerateParams{
		Principal:      principal,
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "schedule", "regenerate").InfoContext(
		r.Context(), "occurrences regenerated", "created_occurrences", created)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, regenerateResponse{CreatedCount: created})
}

type scheduleRequest struct {
	SubjectID string   `json:"subject_id"`
	RuleID    string   `json:"rule_id"`
	Weekdays  []string `json:"weekdays"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

func (r scheduleRequest) toInput() application.ScheduleInput {
	return application.ScheduleInput{
		SubjectID: strings.TrimSpace(r.SubjectID),
		RuleID:    strings.TrimSpace(r.RuleID),
		Weekdays:  append([]string(nil), r.Weekdays...),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
	}
}

type scheduleResponse struct {
	Schedule       scheduleDTO       `json:"schedule"`
	Reconciliation reconciliationDTO `json:"reconciliation"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

type deleteScheduleResponse struct {
	DeletedCount int `json:"deleted_count"`
}

type regenerateResponse struct {
	CreatedCount int `json:"created_count"`
}

type scheduleDTO struct {
	ID        string   `json:"id"`
	SubjectID string   `json:"subject_id"`
	Weekdays  []string `json:"weekdays"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type reconciliationDTO struct {
	DeletedCount int `json:"deleted_count"`
	CreatedCount int `json:"created_count"`
}

func toScheduleDTO(rule application.ScheduleRule) scheduleDTO {
	return scheduleDTO{
		ID:        rule.ID,
		SubjectID: rule.SubjectID,
		Weekdays:  append([]string(nil), rule.Weekdays...),
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		CreatedAt: rule.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rule.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toScheduleDTOs(rules []application.ScheduleRule) []scheduleDTO {
	if len(rules) == 0 {
		return nil
	}
	out := make([]scheduleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toScheduleDTO(rule))
	}
	return out
}

func toReconciliationDTO(result application.ReconcileResult) reconciliationDTO {
	return reconciliationDTO{
		DeletedCount: result.DeletedCount,
		CreatedCount: result.CreatedCount,
	}
}
