/*
Package leave implements the leave request lifecycle engine.

PURPOSE:
  This package contains the core workflow for employee leave requests:
  quota accounting per (employee, leave type, accounting year), date-range
  conflict exclusion, and a two-step approval sequence (manager review,
  then HR review) that drives each request to a terminal state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: The closed set of leave types (PAID, SICK, UNPAID, MATERNITY)
  - Status: Request lifecycle states with legal transitions
  - DateRange: An inclusive day-granularity interval
  - Request: A leave request with its append-only approval trail
  - Principal: The acting identity supplied by the caller

DESIGN PRINCIPLES:
  1. Closed variants: Type and Status are enumerated, never free-form
  2. Precision: Uses decimal.Decimal for day arithmetic
  3. Auditability: Every transition appends to the approval trail
  4. Trust boundary: Principals arrive validated and authenticated

SEE ALSO:
  - ledger.go: Quota reservation and consumption
  - overlap.go: Active-interval conflict exclusion
  - workflow.go: The approval state machine and orchestration
*/
package leave

import (
	"time"
)

// =============================================================================
// LEAVE TYPE - Closed set of leave categories
// =============================================================================

type Type string

const (
	TypePaid      Type = "PAID"
	TypeSick      Type = "SICK"
	TypeUnpaid    Type = "UNPAID"
	TypeMaternity Type = "MATERNITY"
)

// ParseType converts a raw string to a Type.
// Returns a ValidationError for anything outside the closed set.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypePaid, TypeSick, TypeUnpaid, TypeMaternity:
		return Type(s), nil
	}
	return "", &ValidationError{Field: "leave_type", Message: "unknown leave type: " + s}
}

// Valid reports whether t is a member of the closed type set.
func (t Type) Valid() bool {
	switch t {
	case TypePaid, TypeSick, TypeUnpaid, TypeMaternity:
		return true
	}
	return false
}

// =============================================================================
// STATUS - Request lifecycle states
// =============================================================================

// Status models the request lifecycle:
//
//	PENDING -> MANAGER_APPROVED -> HR_APPROVED   (terminal accept)
//	PENDING | MANAGER_APPROVED  -> REJECTED      (terminal reject)
//	PENDING                     -> CANCELLED     (terminal, employee withdrawal)
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusManagerApproved Status = "MANAGER_APPROVED"
	StatusHRApproved      Status = "HR_APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusHRApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the request's date range still occupies the
// employee's calendar for conflict purposes. Rejected and cancelled
// requests free their range.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusManagerApproved, StatusHRApproved:
		return true
	}
	return false
}

// =============================================================================
// DATE RANGE - Inclusive day interval
// =============================================================================

// DateRange is an inclusive [Start, End] interval at day granularity.
// Both endpoints are normalized to UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates and normalizes a range.
// Returns a ValidationError when either date is zero or start is after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, &ValidationError{Field: "dates", Message: "start and end dates are required"}
	}
	s, e := normalizeDay(start), normalizeDay(end)
	if s.After(e) {
		return DateRange{}, &ValidationError{Field: "dates", Message: "start date is after end date"}
	}
	return DateRange{Start: s, End: e}, nil
}

func normalizeDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days returns the inclusive day count of the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether two inclusive ranges intersect:
// [s1,e1] and [s2,e2] overlap iff s1 <= e2 and s2 <= e1.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

func (r DateRange) String() string {
	return "[" + r.Start.Format("2006-01-02") + ", " + r.End.Format("2006-01-02") + "]"
}

// AccountingYear returns the yearly quota bucket a request charges against.
// The bucket is keyed off the start date. Maternity leave draws from a single
// statutory allotment that does not reset with the calendar, so all maternity
// requests share one bucket.
func AccountingYear(t Type, start time.Time) int {
	if t == TypeMaternity {
		return 0
	}
	return start.UTC().Year()
}

// =============================================================================
// PRINCIPAL - The acting identity, supplied by the caller
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleSystem   Role = "system"
)

// Principal identifies who is acting. It is produced by the identity
// collaborator upstream and trusted as-is; the engine never looks roles up.
type Principal struct {
	EmployeeID string
	Role       Role

	// ManagerID is the employee's manager of record. Captured on submission
	// so later manager decisions can be authorized without a directory lookup.
	ManagerID string
}

// =============================================================================
// APPROVAL TRAIL - Append-only decision history
// =============================================================================

type Decision string

const (
	DecisionSubmitted Decision = "submitted"
	DecisionApproved  Decision = "approved"
	DecisionRejected  Decision = "rejected"
	DecisionCancelled Decision = "cancelled"
)

// ApprovalEntry is one immutable step in a request's history.
type ApprovalEntry struct {
	Actor    string
	Role     Role
	Decision Decision
	At       time.Time
}

// =============================================================================
// REQUEST - A leave request record
// =============================================================================

// Request is the engine's unit of work. Requests are created on submission,
// mutated only through workflow transitions, and never deleted. Terminal
// requests are kept for audit.
type Request struct {
	ID         string
	EmployeeID string
	ManagerID  string
	Type       Type
	Range      DateRange
	Reason     string
	Status     Status
	Trail      []ApprovalEntry
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key returns the balance bucket this request charges against.
func (r *Request) Key() BalanceKey {
	return BalanceKey{
		EmployeeID: r.EmployeeID,
		Type:       r.Type,
		Year:       AccountingYear(r.Type, r.Range.Start),
	}
}

// Clone returns a deep copy, so stored records cannot be mutated through
// returned pointers.
func (r *Request) Clone() *Request {
	cp := *r
	cp.Trail = make([]ApprovalEntry, len(r.Trail))
	copy(cp.Trail, r.Trail)
	return &cp
}

func (r *Request) appendTrail(actor string, role Role, decision Decision, at time.Time) {
	r.Trail = append(r.Trail, ApprovalEntry{Actor: actor, Role: role, Decision: decision, At: at})
	r.UpdatedAt = at
}
