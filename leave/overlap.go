/*
overlap.go - Active-interval conflict exclusion

PURPOSE:
  Answers "does this candidate range intersect any active request for this
  employee" without scanning every request. Each employee's active
  intervals are kept sorted by start date; because the engine never admits
  two overlapping active intervals, the set is pairwise disjoint and a
  single binary search locates the only possible neighbor.

WHAT COUNTS AS ACTIVE:
  Pending, manager-approved, and HR-approved requests occupy their range.
  Rejected and cancelled requests are unregistered and stop conflicting.

ATOMICITY:
  Register performs the conflict check and the insertion under one lock.
  Two concurrent submissions for the same employee (even for different
  leave types, which the per-key workflow lock does not serialize) can
  therefore never both pass the check.

SEE ALSO:
  - workflow.go: Registers on submit, unregisters on reject/cancel
*/
package leave

import (
	"sort"
	"sync"
)

// =============================================================================
// OVERLAP INDEX
// =============================================================================

type interval struct {
	Range     DateRange
	RequestID string
}

// OverlapIndex tracks every employee's active leave intervals.
// Different employees' ranges never conflict, so the structure is keyed
// by employee id.
type OverlapIndex struct {
	mu         sync.RWMutex
	byEmployee map[string][]interval
}

func NewOverlapIndex() *OverlapIndex {
	return &OverlapIndex{byEmployee: make(map[string][]interval)}
}

// Register atomically checks the candidate range against the employee's
// active set and inserts it. Returns an OverlapConflictError and leaves the
// set untouched when the range intersects an existing interval.
func (x *OverlapIndex) Register(employeeID, requestID string, r DateRange) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	set := x.byEmployee[employeeID]
	idx, conflict := findConflict(set, r)
	if conflict != nil {
		return &OverlapConflictError{
			EmployeeID: employeeID,
			Requested:  r,
			Existing:   conflict.Range,
			ExistingID: conflict.RequestID,
		}
	}

	// Insert at idx to keep the set sorted by start date.
	set = append(set, interval{})
	copy(set[idx+1:], set[idx:])
	set[idx] = interval{Range: r, RequestID: requestID}
	x.byEmployee[employeeID] = set
	return nil
}

// Unregister removes a request's interval from the active set.
// Removing an absent request is a no-op.
func (x *OverlapIndex) Unregister(employeeID, requestID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	set := x.byEmployee[employeeID]
	for i, iv := range set {
		if iv.RequestID == requestID {
			x.byEmployee[employeeID] = append(set[:i], set[i+1:]...)
			return
		}
	}
}

// Conflicts reports whether the candidate range intersects any active
// interval, without registering it.
func (x *OverlapIndex) Conflicts(employeeID string, r DateRange) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	_, conflict := findConflict(x.byEmployee[employeeID], r)
	return conflict != nil
}

// ActiveCount returns the number of active intervals for an employee.
func (x *OverlapIndex) ActiveCount(employeeID string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byEmployee[employeeID])
}

// findConflict locates the insertion point for r in a start-sorted,
// pairwise-disjoint set and returns the conflicting neighbor, if any.
// Disjointness means starts and ends are both increasing, so only the
// interval immediately before the insertion point can reach into r.
func findConflict(set []interval, r DateRange) (int, *interval) {
	idx := sort.Search(len(set), func(i int) bool {
		return set[i].Range.Start.After(r.End)
	})
	if idx > 0 && set[idx-1].Range.Overlaps(r) {
		return idx, &set[idx-1]
	}
	return idx, nil
}
