/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape validation (missing fields, bad dates) is done in handlers.
  Domain validation (balances, overlaps, transitions) lives in the
  workflow and surfaces through the error mapping in handlers.go.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: Domain model these map from
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitLeaveRequest is the request body to submit a leave request.
type SubmitLeaveRequest struct {
	EmployeeID string `json:"employee_id"`
	ManagerID  string `json:"manager_id"`
	LeaveType  string `json:"leave_type"`
	StartDate  string `json:"start_date"` // ISO date
	EndDate    string `json:"end_date"`   // ISO date
	Reason     string `json:"reason,omitempty"`
}

// DecisionRequest is the request body for manager and HR decisions.
type DecisionRequest struct {
	ActorID string `json:"actor_id"`
	Approve bool   `json:"approve"`
}

// CancelRequest is the request body to cancel a pending request.
type CancelRequest struct {
	EmployeeID string `json:"employee_id"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	ManagerID  string          `json:"manager_id"`
	LeaveType  string          `json:"leave_type"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Days       int             `json:"days"`
	Reason     string          `json:"reason,omitempty"`
	Status     string          `json:"status"`
	Trail      []TrailEntryDTO `json:"trail"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

// TrailEntryDTO represents one approval trail entry.
type TrailEntryDTO struct {
	Actor    string `json:"actor"`
	Role     string `json:"role"`
	Decision string `json:"decision"`
	At       string `json:"at"`
}

// BalanceDTO represents one balance bucket in API responses.
type BalanceDTO struct {
	EmployeeID string  `json:"employee_id"`
	LeaveType  string  `json:"leave_type"`
	Year       int     `json:"year"`
	Allotted   float64 `json:"allotted"`
	Consumed   float64 `json:"consumed"`
	Reserved   float64 `json:"reserved"`
	Available  float64 `json:"available"`
	Capped     bool    `json:"capped"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRequestDTO(req leave.Request) LeaveRequestDTO {
	trail := make([]TrailEntryDTO, len(req.Trail))
	for i, e := range req.Trail {
		trail[i] = TrailEntryDTO{
			Actor:    e.Actor,
			Role:     string(e.Role),
			Decision: string(e.Decision),
			At:       e.At.Format(time.RFC3339),
		}
	}
	return LeaveRequestDTO{
		ID:         req.ID,
		EmployeeID: req.EmployeeID,
		ManagerID:  req.ManagerID,
		LeaveType:  string(req.Type),
		StartDate:  req.Range.Start.Format("2006-01-02"),
		EndDate:    req.Range.End.Format("2006-01-02"),
		Days:       req.Range.Days(),
		Reason:     req.Reason,
		Status:     string(req.Status),
		Trail:      trail,
		CreatedAt:  req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  req.UpdatedAt.Format(time.RFC3339),
	}
}

func toRequestDTOs(reqs []leave.Request) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		dtos[i] = toRequestDTO(r)
	}
	return dtos
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	allotted, _ := b.Allotted.Float64()
	consumed, _ := b.Consumed.Float64()
	reserved, _ := b.Reserved.Float64()
	available, _ := b.Available().Float64()
	return BalanceDTO{
		EmployeeID: b.Key.EmployeeID,
		LeaveType:  string(b.Key.Type),
		Year:       b.Key.Year,
		Allotted:   allotted,
		Consumed:   consumed,
		Reserved:   reserved,
		Available:  available,
		Capped:     b.Capped,
	}
}
