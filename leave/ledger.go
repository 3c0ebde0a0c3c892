/*
ledger.go - Per-employee quota accounting

PURPOSE:
  The Ledger tracks one balance record per (employee, leave type,
  accounting year): the allotted quota, confirmed consumption, and days
  reserved by requests still in flight. It is the only component that
  mutates balance arithmetic.

BALANCE LIFECYCLE:
  reserve:  submission holds days     (reserved += n, may fail on quota)
  confirm:  HR final approval commits (reserved -= n, consumed += n)
  release:  rejection or cancellation (reserved -= n)

CRITICAL INVARIANTS:
  1. consumed + reserved <= allotted for quota-bearing types
  2. reserved never goes negative; confirm and release beyond the
     outstanding reservation fail with ErrInvariantViolation
  3. Records are created lazily with type defaults and never deleted
     within their accounting year

DEFAULT ALLOTMENTS:
  PAID       25 days per calendar year
  SICK       10 days per calendar year
  MATERNITY  126 days, one statutory bucket (no annual reset)
  UNPAID     uncapped; arithmetic is tracked but never limits a request

CONCURRENCY:
  The map is guarded internally, and the workflow additionally serializes
  all mutations for one key behind a per-key mutex so that a transition's
  read-check-write is atomic. See workflow.go.

SEE ALSO:
  - workflow.go: The only caller of the mutating operations
  - store.go: Balance persistence after each mutation
*/
package leave

import (
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE - One quota record
// =============================================================================

// BalanceKey identifies a quota bucket.
type BalanceKey struct {
	EmployeeID string
	Type       Type
	Year       int
}

// Balance is the quota state for one key.
type Balance struct {
	Key      BalanceKey
	Allotted decimal.Decimal
	Consumed decimal.Decimal
	Reserved decimal.Decimal

	// Capped is false for UNPAID leave, which never limits a request.
	Capped bool
}

// Available returns allotted - consumed - reserved.
func (b Balance) Available() decimal.Decimal {
	return b.Allotted.Sub(b.Consumed).Sub(b.Reserved)
}

// Default yearly allotments in days.
var (
	PaidAllotment      = decimal.NewFromInt(25)
	SickAllotment      = decimal.NewFromInt(10)
	MaternityAllotment = decimal.NewFromInt(126)
)

func defaultBalance(key BalanceKey) *Balance {
	b := &Balance{Key: key, Capped: true}
	switch key.Type {
	case TypePaid:
		b.Allotted = PaidAllotment
	case TypeSick:
		b.Allotted = SickAllotment
	case TypeMaternity:
		b.Allotted = MaternityAllotment
	case TypeUnpaid:
		b.Capped = false
	}
	return b
}

// =============================================================================
// LEDGER - Owns all balance records
// =============================================================================

// Ledger holds the authoritative in-memory balance state. Records are
// created lazily on first use and persisted through the workflow's store
// after every mutation.
type Ledger struct {
	mu       sync.RWMutex
	balances map[BalanceKey]*Balance
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[BalanceKey]*Balance)}
}

// Reserve holds days against the key's quota. Fails with
// ErrInsufficientBalance when consumed + reserved + days would exceed the
// allotment of a capped type. Uncapped types always succeed.
func (l *Ledger) Reserve(key BalanceKey, days decimal.Decimal) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getLocked(key)
	if b.Capped && b.Consumed.Add(b.Reserved).Add(days).GreaterThan(b.Allotted) {
		return Balance{}, &InsufficientBalanceError{
			Key:       key,
			Available: b.Available(),
			Requested: days,
		}
	}
	b.Reserved = b.Reserved.Add(days)
	return *b, nil
}

// Confirm moves days from reserved to consumed. Called exactly once per
// request, when HR grants final approval.
func (l *Ledger) Confirm(key BalanceKey, days decimal.Decimal) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getLocked(key)
	if b.Reserved.LessThan(days) {
		return Balance{}, &InvariantError{
			Key:    key,
			Detail: "confirm of " + days.String() + " days exceeds reservation of " + b.Reserved.String(),
		}
	}
	b.Reserved = b.Reserved.Sub(days)
	b.Consumed = b.Consumed.Add(days)
	return *b, nil
}

// Release returns reserved days without touching consumption. Called when a
// pending or manager-approved request is rejected or cancelled.
func (l *Ledger) Release(key BalanceKey, days decimal.Decimal) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getLocked(key)
	if b.Reserved.LessThan(days) {
		return Balance{}, &InvariantError{
			Key:    key,
			Detail: "release of " + days.String() + " days exceeds reservation of " + b.Reserved.String(),
		}
	}
	b.Reserved = b.Reserved.Sub(days)
	return *b, nil
}

// Balance returns the current record for a key, materializing the lazy
// default when none exists yet. The returned value is a snapshot.
func (l *Ledger) Balance(key BalanceKey) Balance {
	l.mu.RLock()
	if b, ok := l.balances[key]; ok {
		snapshot := *b
		l.mu.RUnlock()
		return snapshot
	}
	l.mu.RUnlock()
	// Unpersisted defaults are cheap to rebuild, no need to store them.
	return *defaultBalance(key)
}

// Restore seeds a record from persisted state during rehydration.
func (l *Ledger) Restore(b Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := b
	l.balances[b.Key] = &cp
}

func (l *Ledger) getLocked(key BalanceKey) *Balance {
	if b, ok := l.balances[key]; ok {
		return b
	}
	b := defaultBalance(key)
	l.balances[key] = b
	return b
}
