package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/application"
	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
)

type attendanceService interface {
	ListOccurrences(ctx context.Context, params application.ListOccurrencesParams) ([]application.Occurrence, error)
	MarkOccurrence(ctx context.Context, params application.MarkOccurrenceParams) (application.MarkResult, error)
	GetSummary(ctx context.Context, params application.SummaryParams) (application.SummaryReport, error)
	Today(ctx context.Context, params application.TodayParams) (application.TodayView, error)
}

type OccurrenceHandler struct {
	service   attendanceService
	clock     RequestClock
	responder responder
}

func NewOccurrenceHandler(service attendanceService, clock RequestClock, logger *slog.Logger) *OccurrenceHandler {
	return &OccurrenceHandler{service: service, clock: clock, responder: newResponder(logger)}
}

// List returns occurrences inside the inclusive [from, to] window, ordered
// by date then start time. Both bounds are optional YYYY-MM-DD values and a
// subject_id query restricts the result to one subject.
func (h *OccurrenceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.ListOccurrencesParams{
		SubjectID: strings.TrimSpace(query.Get("subject_id")),
	}

	for _, bound := range []struct {
		name   string
		target **time.Time
	}{
		{name: "from", target: &params.From},
		{name: "to", target: &params.To},
	} {
		value := strings.TrimSpace(query.Get(bound.name))
		if value == "" {
			continue
		}
		date, err := calendar.ParseDate(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest,
				errors.New(bound.name+" must be a YYYY-MM-DD date"))
			return
		}
		*bound.target = &date
	}

	principal, _ := PrincipalFromContext(r.Context())
	params.Principal = principal

	occurrences, err := h.service.ListOccurrences(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOccurrencesResponse{
		Occurrences: toOccurrenceDTOs(occurrences),
	})
}

// Today returns today's classes ordered by start time, each paired with its
// subject summary.
func (h *OccurrenceHandler) Today(w http.ResponseWriter, r *http.Request) {
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
	view, err := h.service.Today(r.Context(), application.TodayParams{
		Principal:      principal,
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]todayItemDTO, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, todayItemDTO{
			Occurrence: toOccurrenceDTO(item.Occurrence),
			Summary:    toSubjectSummaryDTO(item.Summary),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, todayResponse{Date: view.Date, Items: items})
}

// MarkStatus records attendance for one occurrence and returns it together
// with the fresh summary of its subject.
func (h *OccurrenceHandler) MarkStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	occurrenceID, ok := OccurrenceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(occurrenceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOccurrenceID)
		return
	}

	var req markStatusRequest
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
	result, err := h.service.MarkOccurrence(r.Context(), application.MarkOccurrenceParams{
		Principal:      principal,
		OccurrenceID:   occurrenceID,
		Status:         attendance.Status(strings.TrimSpace(req.Status)),
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, markStatusResponse{
		Occurrence: toOccurrenceDTO(result.Occurrence),
		Summary:    toSubjectSummaryDTO(result.Summary),
	})
}

// Summary reports attendance aggregates up to today, overall and per
// subject. A subject_id query restricts the report to one subject.
func (h *OccurrenceHandler) Summary(w http.ResponseWriter, r *http.Request) {
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
	report, err := h.service.GetSummary(r.Context(), application.SummaryParams{
		Principal:      principal,
		SubjectID:      strings.TrimSpace(r.URL.Query().Get("subject_id")),
		ReferenceToday: today,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	subjects := make([]subjectSummaryDTO, 0, len(report.Subjects))
	for _, summary := range report.Subjects {
		subjects = append(subjects, toSubjectSummaryDTO(summary))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{
		Overall:   report.Overall,
		Indicator: report.Indicator,
		Subjects:  subjects,
	})
}

type markStatusRequest struct {
	Status string `json:"status"`
}

type listOccurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type markStatusResponse struct {
	Occurrence occurrenceDTO     `json:"occurrence"`
	Summary    subjectSummaryDTO `json:"summary"`
}

type todayResponse struct {
	Date  string         `json:"date"`
	Items []todayItemDTO `json:"items"`
}

type todayItemDTO struct {
	Occurrence occurrenceDTO     `json:"occurrence"`
	Summary    subjectSummaryDTO `json:"summary"`
}

type summaryResponse struct {
	Overall   attendance.Summary  `json:"overall"`
	Indicator string              `json:"indicator"`
	Subjects  []subjectSummaryDTO `json:"subjects"`
}

type occurrenceDTO struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	RuleID    string `json:"rule_id,omitempty"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	MarkedAt  string `json:"marked_at,omitempty"`
}

type subjectSummaryDTO struct {
	SubjectID   string             `json:"subject_id"`
	SubjectName string             `json:"subject_name"`
	Summary     attendance.Summary `json:"summary"`
	Indicator   string             `json:"indicator"`
}

func toOccurrenceDTO(occurrence application.Occurrence) occurrenceDTO {
	dto := occurrenceDTO{
		ID:        occurrence.ID,
		SubjectID: occurrence.SubjectID,
		RuleID:    occurrence.RuleID,
		Date:      occurrence.Date,
		StartTime: occurrence.StartTime,
		EndTime:   occurrence.EndTime,
		Status:    string(occurrence.Status),
	}
	if occurrence.MarkedAt != nil {
		dto.MarkedAt = occurrence.MarkedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toOccurrenceDTOs(occurrences []application.Occurrence) []occurrenceDTO {
	if len(occurrences) == 0 {
		return nil
	}
	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		out = append(out, toOccurrenceDTO(occurrence))
	}
	return out
}

func toSubjectSummaryDTO(summary application.SubjectSummary) subjectSummaryDTO {
	return subjectSummaryDTO{
		SubjectID:   summary.SubjectID,
		SubjectName: summary.SubjectName,
		Summary:     summary.Summary,
		Indicator:   summary.Indicator,
	}
}
