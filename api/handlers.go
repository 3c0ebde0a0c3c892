/*
handlers.go - HTTP API handlers for the leave workflow

PURPOSE:
  Exposes the leave workflow engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the workflow.

ENDPOINTS:
  Requests:
    POST   /api/requests                       Submit a leave request
    GET    /api/requests/{id}                  Get a single request
    POST   /api/requests/{id}/manager-decision Manager approve/reject
    POST   /api/requests/{id}/hr-decision      HR approve/reject
    POST   /api/requests/{id}/cancel           Employee cancellation

  Employees:
    GET    /api/employees/{id}/requests        Request history
    GET    /api/employees/{id}/balance         Balance for a type and year

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate shape
  3. Call the workflow
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Actor not authorized for the transition
  - 404: Request not found
  - 409: Overlap conflict, insufficient balance, illegal transition
  - 500: Invariant violations and unknown errors
  - 502: Storage failures (the engine does not retry)

SECURITY NOTE:
  Actor identity arrives in the request body and is trusted as-is.
  Authentication belongs to an upstream gateway, not this engine.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - leave/workflow.go: The operations these handlers front
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *leave.Service
	log     *zap.Logger
}

// NewHandler creates a new handler over the workflow service.
func NewHandler(svc *leave.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: svc, log: log.Named("api")}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a new leave request.
// POST /api/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	typ, err := leave.ParseType(body.LeaveType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	start, err := parseDate(body.StartDate, "start_date")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	end, err := parseDate(body.EndDate, "end_date")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	principal := leave.Principal{
		EmployeeID: body.EmployeeID,
		Role:       leave.RoleEmployee,
		ManagerID:  body.ManagerID,
	}
	req, err := h.Service.Submit(r.Context(), principal, typ, start, end, body.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(*req))
}

// GetRequest returns a single leave request.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// ManagerDecision records the manager's approval or rejection.
// POST /api/requests/{id}/manager-decision
func (h *Handler) ManagerDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.ManagerDecide)
}

// HRDecision records HR's final approval or rejection.
// POST /api/requests/{id}/hr-decision
func (h *Handler) HRDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.HRDecide)
}

// CancelRequest withdraws a pending request.
// POST /api/requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := h.Service.Cancel(r.Context(), id, body.EmployeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployeeRequests returns an employee's request history, newest first.
// GET /api/employees/{id}/requests
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reqs, err := h.Service.ListForEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// GetBalance returns one balance bucket.
// GET /api/employees/{id}/balance?type=PAID&year=2026
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	typ, err := leave.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
	}

	bal, err := h.Service.GetBalance(r.Context(), id, typ, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

// =============================================================================
// HELPERS
// =============================================================================

// decide is the shared body of the two decision endpoints.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, requestID string, approve bool, actorID string) (*leave.Request, error)) {
	id := chi.URLParam(r, "id")

	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := fn(r.Context(), id, body.Approve, body.ActorID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &leave.ValidationError{Field: field, Message: field + " is required"}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &leave.ValidationError{Field: field, Message: "invalid date, expected YYYY-MM-DD"}
	}
	return t, nil
}

// writeDomainError maps workflow errors onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrValidation):
		writeErrorCode(w, http.StatusBadRequest, "VALIDATION", err)
	case errors.Is(err, leave.ErrForbidden):
		writeErrorCode(w, http.StatusForbidden, "FORBIDDEN", err)
	case errors.Is(err, leave.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "NOT_FOUND", err)
	case errors.Is(err, leave.ErrOverlapConflict):
		writeErrorCode(w, http.StatusConflict, "OVERLAP_CONFLICT", err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		writeErrorCode(w, http.StatusConflict, "INSUFFICIENT_BALANCE", err)
	case errors.Is(err, leave.ErrInvalidTransition):
		writeErrorCode(w, http.StatusConflict, "INVALID_TRANSITION", err)
	case errors.Is(err, leave.ErrStorage):
		h.log.Error("storage failure", zap.Error(err))
		writeErrorCode(w, http.StatusBadGateway, "STORAGE_FAILURE", err)
	default:
		h.log.Error("internal error", zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
