package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/booking"
	"github.com/medflow/clinic-scheduling/internal/interval"
)

func proposeBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProposeBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		therapistID, err := parseOptionalUUID(req.TherapistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_therapist_id", "therapist_id must be a valid UUID")
			return
		}

		serviceID, err := parseOptionalUUID(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		span, err := interval.New(req.Start, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
			return
		}

		appt, err := svc.ProposeBooking(r.Context(), booking.Proposal{
			ClinicID:    clinicID,
			PatientID:   patientID,
			TherapistID: therapistID,
			ServiceID:   serviceID,
			Span:        span,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, ok := parseWindow(w, r)
		if !ok {
			return
		}

		var filters booking.Filters

		if raw := r.URL.Query().Get("clinic_id"); raw != "" {
			clinicID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
				return
			}
			filters.ClinicID = &clinicID
		}

		if raw := r.URL.Query().Get("therapist_id"); raw != "" {
			therapistID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_therapist_id", "therapist_id must be a valid UUID")
				return
			}
			filters.TherapistID = &therapistID
		}

		if raw := r.URL.Query().Get("status"); raw != "" {
			status := booking.Status(raw)
			switch status {
			case booking.StatusPending, booking.StatusConfirmed, booking.StatusCancelled:
				filters.Status = &status
			default:
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, confirmed, or cancelled")
				return
			}
		}

		appts, err := svc.QueryAppointments(r.Context(), win, filters)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func rescheduleBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		span, err := interval.New(req.Start, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
			return
		}

		appt, err := svc.RescheduleBooking(r.Context(), id, span)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func redeemConfirmationHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if token == "" {
			writeError(w, http.StatusBadRequest, "missing_token", "confirmation token is required")
			return
		}

		result, err := svc.RedeemConfirmationToken(r.Context(), token)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ConfirmationResponse{
			Confirmed:        true,
			AlreadyConfirmed: result.AlreadyConfirmed,
			Appointment:      toAppointmentResponse(result.Appointment),
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeConflict(w, toConflictDetail(conflict), conflict.Error())
	case errors.Is(err, booking.ErrBookingContended):
		writeError(w, http.StatusConflict, "schedule_contended", "schedule is being modified, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "token_not_found", err.Error())
	case errors.Is(err, booking.ErrMissingParticipant),
		errors.Is(err, interval.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid_booking", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toConflictDetail(c *booking.ConflictError) *ConflictDetail {
	detail := &ConflictDetail{Kind: string(c.Kind)}
	if c.Block != nil {
		id := c.Block.ID
		detail.BlockID = &id
		detail.BlockReason = c.Block.Reason
		detail.Start = &c.Block.Span.Start
		detail.End = &c.Block.Span.End
	}
	if c.Appointment != nil {
		id := c.Appointment.ID
		detail.AppointmentID = &id
		detail.Start = &c.Appointment.Span.Start
		detail.End = &c.Appointment.Span.End
	}
	return detail
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseWindow reads the required from/to query parameters. On failure it has
// already written the error response.
func parseWindow(w http.ResponseWriter, r *http.Request) (interval.Interval, bool) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", "from must be an RFC 3339 timestamp")
		return interval.Interval{}, false
	}

	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", "to must be an RFC 3339 timestamp")
		return interval.Interval{}, false
	}

	win, err := interval.New(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
		return interval.Interval{}, false
	}
	return win, true
}
