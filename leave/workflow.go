/*
workflow.go - Approval state machine and orchestration

PURPOSE:
  Drives a leave request through its lifecycle and keeps the ledger, the
  overlap index, and durable storage consistent at every step.

REQUEST FLOW:

  submit ──▶ PENDING ──managerDecide(approve)──▶ MANAGER_APPROVED
               │  │                                   │       │
               │  └─managerDecide(reject)─▶ REJECTED ◀┘ (hrDecide reject)
               │                                      │
               └─cancel─▶ CANCELLED     hrDecide(approve)─▶ HR_APPROVED

  Submission reserves quota and occupies the date range. Rejection and
  cancellation are the only exits that release the reservation; HR
  approval is the only exit that confirms consumption. No other path
  touches the ledger.

ATOMICITY PER CALL:
  Each transition runs under the per-(employee, type, year) mutex. The
  balance mutation, the status change, and the durable write happen as one
  unit: when the store write fails, the in-memory mutation is rolled back
  from a snapshot taken before the change and the error is surfaced as a
  StorageFailure. Notifications go out only after the write has landed.

CONCURRENCY:
  Transitions for the same key are linearized by the keyed mutex.
  Transitions for different keys run in parallel; cross-type overlap
  safety for one employee comes from the index's atomic Register.

SEE ALSO:
  - ledger.go, overlap.go: The components sequenced here
  - api/handlers.go: The HTTP surface over these operations
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service is the public workflow surface. All request and balance
// mutations go through it; callers never touch the ledger or index
// directly.
type Service struct {
	store    Store
	notifier Notifier
	ledger   *Ledger
	index    *OverlapIndex
	locks    keyedMutex
	log      *zap.Logger
}

func NewService(store Store, notifier Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		ledger:   NewLedger(),
		index:    NewOverlapIndex(),
		log:      log.Named("leave.workflow"),
	}
}

// Load rehydrates the ledger and overlap index from durable storage.
// Call once before serving traffic.
func (s *Service) Load(ctx context.Context) error {
	balances, err := s.store.ListBalances(ctx)
	if err != nil {
		return &StorageError{Op: "load balances", Err: err}
	}
	for _, b := range balances {
		s.ledger.Restore(b)
	}

	active, err := s.store.ListActiveRequests(ctx)
	if err != nil {
		return &StorageError{Op: "load active requests", Err: err}
	}
	for i := range active {
		req := &active[i]
		if err := s.index.Register(req.EmployeeID, req.ID, req.Range); err != nil {
			// Persisted active requests must be pairwise disjoint.
			return &InvariantError{
				Key:    req.Key(),
				Detail: fmt.Sprintf("stored active requests overlap: %v", err),
			}
		}
	}

	s.log.Info("state rehydrated",
		zap.Int("balances", len(balances)),
		zap.Int("active_requests", len(active)),
	)
	return nil
}

// =============================================================================
// SUBMIT - The only path into PENDING
// =============================================================================

// Submit validates and creates a new leave request. Preconditions, checked
// in order: no overlap with the employee's active requests, then a
// successful quota reservation. On any failure the request is never
// created and the caller receives the specific reason.
func (s *Service) Submit(ctx context.Context, p Principal, typ Type, start, end time.Time, reason string) (*Request, error) {
	if p.EmployeeID == "" {
		return nil, &ValidationError{Field: "employee_id", Message: "employee id is required"}
	}
	if !typ.Valid() {
		return nil, &ValidationError{Field: "leave_type", Message: "unknown leave type: " + string(typ)}
	}
	rng, err := NewDateRange(start, end)
	if err != nil {
		return nil, err
	}

	key := BalanceKey{EmployeeID: p.EmployeeID, Type: typ, Year: AccountingYear(typ, rng.Start)}
	unlock := s.locks.lock(key)
	defer unlock()

	now := time.Now().UTC()
	req := &Request{
		ID:         uuid.NewString(),
		EmployeeID: p.EmployeeID,
		ManagerID:  p.ManagerID,
		Type:       typ,
		Range:      rng,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now,
	}
	req.appendTrail(p.EmployeeID, RoleEmployee, DecisionSubmitted, now)

	if err := s.index.Register(req.EmployeeID, req.ID, rng); err != nil {
		return nil, err
	}

	days := decimal.NewFromInt(int64(rng.Days()))
	snapshot := s.ledger.Balance(key)
	bal, err := s.ledger.Reserve(key, days)
	if err != nil {
		s.index.Unregister(req.EmployeeID, req.ID)
		return nil, err
	}

	if err := s.store.ApplyTransition(ctx, *req, &bal); err != nil {
		s.ledger.Restore(snapshot)
		s.index.Unregister(req.EmployeeID, req.ID)
		return nil, &StorageError{Op: "persist submission", Err: err}
	}

	s.log.Info("leave request submitted",
		zap.String("request_id", req.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", string(typ)),
		zap.String("range", rng.String()),
		zap.String("reserved", bal.Reserved.String()),
	)
	s.emit(ctx, EventSubmitted, req, p.EmployeeID)
	return req, nil
}

// =============================================================================
// MANAGER DECISION - PENDING -> MANAGER_APPROVED | REJECTED
// =============================================================================

// ManagerDecide records the manager review. Legal only from PENDING, and
// only for the requester's manager of record. Approval keeps the quota
// reserved; rejection releases it.
func (s *Service) ManagerDecide(ctx context.Context, requestID string, approve bool, managerID string) (*Request, error) {
	req, unlock, err := s.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: req.ID, From: req.Status, Action: "manager-decide"}
	}
	if managerID == "" || managerID != req.ManagerID {
		return nil, &ForbiddenError{ActorID: managerID, Action: "decide request " + req.ID}
	}

	now := time.Now().UTC()
	if approve {
		req.Status = StatusManagerApproved
		req.appendTrail(managerID, RoleManager, DecisionApproved, now)
		if err := s.store.ApplyTransition(ctx, *req, nil); err != nil {
			return nil, &StorageError{Op: "persist manager approval", Err: err}
		}
	} else {
		req.Status = StatusRejected
		req.appendTrail(managerID, RoleManager, DecisionRejected, now)
		if err := s.releaseAndPersist(ctx, req, "persist manager rejection"); err != nil {
			return nil, err
		}
	}

	s.log.Info("manager decision recorded",
		zap.String("request_id", req.ID),
		zap.Bool("approved", approve),
		zap.String("manager_id", managerID),
	)
	s.emit(ctx, EventManagerDecided, req, managerID)
	return req, nil
}

// =============================================================================
// HR DECISION - MANAGER_APPROVED -> HR_APPROVED | REJECTED
// =============================================================================

// HRDecide records the final HR review. Legal only from MANAGER_APPROVED.
// Approval confirms consumption, the only path that does; rejection
// releases the reservation.
func (s *Service) HRDecide(ctx context.Context, requestID string, approve bool, hrID string) (*Request, error) {
	req, unlock, err := s.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.Status != StatusManagerApproved {
		return nil, &InvalidTransitionError{RequestID: req.ID, From: req.Status, Action: "hr-decide"}
	}

	now := time.Now().UTC()
	key := req.Key()
	days := decimal.NewFromInt(int64(req.Range.Days()))

	if approve {
		snapshot := s.ledger.Balance(key)
		bal, err := s.ledger.Confirm(key, days)
		if err != nil {
			s.log.Error("confirm failed", zap.String("request_id", req.ID), zap.Error(err))
			return nil, err
		}
		req.Status = StatusHRApproved
		req.appendTrail(hrID, RoleHR, DecisionApproved, now)
		if err := s.store.ApplyTransition(ctx, *req, &bal); err != nil {
			s.ledger.Restore(snapshot)
			return nil, &StorageError{Op: "persist hr approval", Err: err}
		}
	} else {
		req.Status = StatusRejected
		req.appendTrail(hrID, RoleHR, DecisionRejected, now)
		if err := s.releaseAndPersist(ctx, req, "persist hr rejection"); err != nil {
			return nil, err
		}
	}

	s.log.Info("hr decision recorded",
		zap.String("request_id", req.ID),
		zap.Bool("approved", approve),
		zap.String("hr_id", hrID),
	)
	s.emit(ctx, EventHRDecided, req, hrID)
	return req, nil
}

// =============================================================================
// CANCEL - PENDING -> CANCELLED, owner only
// =============================================================================

// Cancel withdraws a request before any decision has been made. Legal only
// from PENDING and only for the owning employee. Releases the reservation.
func (s *Service) Cancel(ctx context.Context, requestID, employeeID string) (*Request, error) {
	req, unlock, err := s.lockRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: req.ID, From: req.Status, Action: "cancel"}
	}
	if employeeID == "" || employeeID != req.EmployeeID {
		return nil, &ForbiddenError{ActorID: employeeID, Action: "cancel request " + req.ID}
	}

	req.Status = StatusCancelled
	req.appendTrail(employeeID, RoleEmployee, DecisionCancelled, time.Now().UTC())
	if err := s.releaseAndPersist(ctx, req, "persist cancellation"); err != nil {
		return nil, err
	}

	s.log.Info("leave request cancelled",
		zap.String("request_id", req.ID),
		zap.String("employee_id", employeeID),
	)
	s.emit(ctx, EventCancelled, req, employeeID)
	return req, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// GetBalance returns the quota record for one key, materializing type
// defaults for keys never touched. Maternity always reads from its single
// statutory bucket regardless of the requested year.
func (s *Service) GetBalance(ctx context.Context, employeeID string, typ Type, year int) (Balance, error) {
	if employeeID == "" {
		return Balance{}, &ValidationError{Field: "employee_id", Message: "employee id is required"}
	}
	if !typ.Valid() {
		return Balance{}, &ValidationError{Field: "leave_type", Message: "unknown leave type: " + string(typ)}
	}
	if typ == TypeMaternity {
		year = 0
	}
	return s.ledger.Balance(BalanceKey{EmployeeID: employeeID, Type: typ, Year: year}), nil
}

// Get returns a single request by id.
func (s *Service) Get(ctx context.Context, requestID string) (*Request, error) {
	if requestID == "" {
		return nil, &ValidationError{Field: "request_id", Message: "request id is required"}
	}
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, &StorageError{Op: "load request", Err: err}
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return req, nil
}

// ListForEmployee returns the employee's full request history, including
// terminal requests kept for audit.
func (s *Service) ListForEmployee(ctx context.Context, employeeID string) ([]Request, error) {
	if employeeID == "" {
		return nil, &ValidationError{Field: "employee_id", Message: "employee id is required"}
	}
	reqs, err := s.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, &StorageError{Op: "list requests", Err: err}
	}
	return reqs, nil
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// lockRequest loads the request, acquires its key mutex, and reloads under
// the lock so the caller sees the latest committed state. The returned
// unlock must be called on every exit path.
func (s *Service) lockRequest(ctx context.Context, requestID string) (*Request, func(), error) {
	if requestID == "" {
		return nil, nil, &ValidationError{Field: "request_id", Message: "request id is required"}
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, &StorageError{Op: "load request", Err: err}
	}
	if req == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	unlock := s.locks.lock(req.Key())

	// Another transition may have committed between the read and the lock.
	req, err = s.store.GetRequest(ctx, requestID)
	if err != nil {
		unlock()
		return nil, nil, &StorageError{Op: "load request", Err: err}
	}
	if req == nil {
		unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}
	return req, unlock, nil
}

// releaseAndPersist releases the request's reservation and persists the
// terminal state as one unit, rolling the ledger back if the write fails.
// The request's range stops conflicting only after the write has landed.
func (s *Service) releaseAndPersist(ctx context.Context, req *Request, op string) error {
	key := req.Key()
	days := decimal.NewFromInt(int64(req.Range.Days()))

	snapshot := s.ledger.Balance(key)
	bal, err := s.ledger.Release(key, days)
	if err != nil {
		s.log.Error("release failed", zap.String("request_id", req.ID), zap.Error(err))
		return err
	}
	if err := s.store.ApplyTransition(ctx, *req, &bal); err != nil {
		s.ledger.Restore(snapshot)
		return &StorageError{Op: op, Err: err}
	}
	s.index.Unregister(req.EmployeeID, req.ID)
	return nil
}

// emit sends the transition event. Delivery failures are logged and
// dropped; they never affect the outcome of the call.
func (s *Service) emit(ctx context.Context, typ EventType, req *Request, actorID string) {
	ev := Event{
		Type:       typ,
		RequestID:  req.ID,
		EmployeeID: req.EmployeeID,
		NewStatus:  req.Status,
		ActorID:    actorID,
		At:         time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notification delivery failed",
			zap.String("request_id", req.ID),
			zap.String("event_type", string(typ)),
			zap.Error(err),
		)
	}
}
