package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/booking"
)

type ProposeBookingRequest struct {
	ClinicID    string    `json:"clinic_id"`
	PatientID   string    `json:"patient_id"`
	TherapistID string    `json:"therapist_id,omitempty"`
	ServiceID   string    `json:"service_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type RescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AppointmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ClinicID          uuid.UUID  `json:"clinic_id"`
	PatientID         uuid.UUID  `json:"patient_id"`
	TherapistID       *uuid.UUID `json:"therapist_id,omitempty"`
	ServiceID         *uuid.UUID `json:"service_id,omitempty"`
	Start             time.Time  `json:"start"`
	End               time.Time  `json:"end"`
	Status            string     `json:"status"`
	ConfirmationToken string     `json:"confirmation_token,omitempty"`
	ConfirmBy         *time.Time `json:"confirm_by,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                a.ID,
		ClinicID:          a.ClinicID,
		PatientID:         a.PatientID,
		TherapistID:       a.TherapistID,
		ServiceID:         a.ServiceID,
		Start:             a.Span.Start,
		End:               a.Span.End,
		Status:            string(a.Status),
		ConfirmationToken: a.ConfirmationToken,
		ConfirmBy:         a.ConfirmBy,
	}
}

type ConfirmationResponse struct {
	Confirmed        bool                `json:"confirmed"`
	AlreadyConfirmed bool                `json:"already_confirmed"`
	Appointment      AppointmentResponse `json:"appointment"`
}

type RecurrenceRuleRequest struct {
	Frequency  string     `json:"frequency"`
	Interval   int        `json:"interval"`
	DaysOfWeek []int      `json:"days_of_week,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

type CreateBlockRequest struct {
	ClinicID    string                 `json:"clinic_id"`
	TherapistID string                 `json:"therapist_id,omitempty"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Reason      string                 `json:"reason,omitempty"`
	Recurrence  *RecurrenceRuleRequest `json:"recurrence,omitempty"`
	CreatedBy   string                 `json:"created_by"`
}

type BlockResponse struct {
	ID          uuid.UUID              `json:"id"`
	ClinicID    uuid.UUID              `json:"clinic_id"`
	TherapistID *uuid.UUID             `json:"therapist_id,omitempty"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Reason      string                 `json:"reason,omitempty"`
	Recurrence  *RecurrenceRuleRequest `json:"recurrence,omitempty"`
}

type IntervalResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ConflictDetail struct {
	Kind          string     `json:"kind"`
	BlockID       *uuid.UUID `json:"block_id,omitempty"`
	BlockReason   string     `json:"block_reason,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
}

type ErrorResponse struct {
	Error    string          `json:"error"`
	Details  string          `json:"details,omitempty"`
	Conflict *ConflictDetail `json:"conflict,omitempty"`
}
