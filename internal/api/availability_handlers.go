package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/availability"
	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/recurrence"
)

func createBlockHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		therapistID, err := parseOptionalUUID(req.TherapistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_therapist_id", "therapist_id must be a valid UUID")
			return
		}

		createdBy, err := uuid.Parse(req.CreatedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_created_by", "created_by must be a valid UUID")
			return
		}

		span, err := interval.New(req.Start, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
			return
		}

		rule, err := toRecurrenceRule(req.Recurrence)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence", err.Error())
			return
		}

		block, err := svc.CreateBlock(r.Context(), availability.Block{
			ClinicID:    clinicID,
			TherapistID: therapistID,
			Span:        span,
			Reason:      req.Reason,
			IsRecurring: rule != nil,
			Recurrence:  rule,
			CreatedBy:   createdBy,
		})
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockResponse(block))
	}
}

func deleteBlockHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteBlock(r.Context(), id); err != nil {
			handleAvailabilityError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func queryAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(r.URL.Query().Get("clinic_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		therapistID, err := parseOptionalUUID(r.URL.Query().Get("therapist_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_therapist_id", "therapist_id must be a valid UUID")
			return
		}

		win, ok := parseWindow(w, r)
		if !ok {
			return
		}

		blocked, err := svc.QueryWindows(r.Context(), clinicID, win, therapistID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		out := make([]IntervalResponse, 0, len(blocked))
		for _, iv := range blocked {
			out = append(out, IntervalResponse{Start: iv.Start, End: iv.End})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", err.Error())
	case errors.Is(err, availability.ErrRecurrenceMismatch),
		errors.Is(err, interval.ErrInvalid),
		errors.Is(err, recurrence.ErrInvalidFrequency),
		errors.Is(err, recurrence.ErrInvalidInterval),
		errors.Is(err, recurrence.ErrInvalidWeekday):
		writeError(w, http.StatusBadRequest, "invalid_block", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toRecurrenceRule(req *RecurrenceRuleRequest) (*recurrence.Rule, error) {
	if req == nil {
		return nil, nil
	}

	rule := &recurrence.Rule{
		Frequency: recurrence.Frequency(req.Frequency),
		Interval:  req.Interval,
		EndDate:   req.EndDate,
	}
	for _, d := range req.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, recurrence.ErrInvalidWeekday
		}
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(d))
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

func toBlockResponse(b *availability.Block) BlockResponse {
	resp := BlockResponse{
		ID:          b.ID,
		ClinicID:    b.ClinicID,
		TherapistID: b.TherapistID,
		Start:       b.Span.Start,
		End:         b.Span.End,
		Reason:      b.Reason,
	}
	if b.Recurrence != nil {
		rule := &RecurrenceRuleRequest{
			Frequency: string(b.Recurrence.Frequency),
			Interval:  b.Recurrence.Interval,
			EndDate:   b.Recurrence.EndDate,
		}
		for _, d := range b.Recurrence.DaysOfWeek {
			rule.DaysOfWeek = append(rule.DaysOfWeek, int(d))
		}
		resp.Recurrence = rule
	}
	return resp
}
