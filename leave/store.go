/*
store.go - Persistence collaborator contract

PURPOSE:
  Defines the interface between the workflow and durable storage. The
  engine owns the in-memory state (ledger, overlap index); the Store is a
  collaborator that either applies a write durably or reports failure.
  The engine never retries a failed write itself.

ATOMIC TRANSITIONS:
  Every state transition touches at most one request and one balance
  record. ApplyTransition persists both in a single atomic unit so no
  partial mutation survives a crash between the two writes.

IMPLEMENTATIONS:
  - leave/store/memory.go: In-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite-backed production store

SEE ALSO:
  - workflow.go: Issues the writes and wraps failures in StorageError
*/
package leave

import "context"

// Store is the durable storage collaborator for requests and balances.
type Store interface {
	// ApplyTransition atomically upserts a request and, when bal is
	// non-nil, the balance record the transition mutated. Either both
	// writes land or neither does.
	ApplyTransition(ctx context.Context, req Request, bal *Balance) error

	// GetRequest returns the request with the given id, or (nil, nil)
	// when it does not exist.
	GetRequest(ctx context.Context, id string) (*Request, error)

	// ListByEmployee returns all requests for an employee, newest first.
	ListByEmployee(ctx context.Context, employeeID string) ([]Request, error)

	// ListActiveRequests returns every request whose range still occupies
	// its employee's calendar. Used to rebuild the overlap index on start.
	ListActiveRequests(ctx context.Context) ([]Request, error)

	// ListBalances returns every persisted balance record. Used to
	// rehydrate the ledger on start.
	ListBalances(ctx context.Context) ([]Balance, error)
}
