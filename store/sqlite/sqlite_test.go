package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRequest(t *testing.T, id, employeeID string, status leave.Status) leave.Request {
	t.Helper()
	rng, err := leave.NewDateRange(
		time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	now := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	return leave.Request{
		ID:         id,
		EmployeeID: employeeID,
		ManagerID:  "mgr-1",
		Type:       leave.TypePaid,
		Range:      rng,
		Reason:     "vacation",
		Status:     status,
		Trail: []leave.ApprovalEntry{
			{Actor: employeeID, Role: leave.RoleEmployee, Decision: leave.DecisionSubmitted, At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestSQLiteStore_RequestRoundTrip(t *testing.T) {
	// GIVEN: A persisted pending request
	// WHEN: Reading it back
	// THEN: Every field survives, including the approval trail

	st := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest(t, "req-1", "emp-1", leave.StatusPending)
	require.NoError(t, st.ApplyTransition(ctx, req, nil))

	got, err := st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.EmployeeID, got.EmployeeID)
	assert.Equal(t, req.ManagerID, got.ManagerID)
	assert.Equal(t, req.Type, got.Type)
	assert.True(t, req.Range.Start.Equal(got.Range.Start))
	assert.True(t, req.Range.End.Equal(got.Range.End))
	assert.Equal(t, req.Reason, got.Reason)
	assert.Equal(t, req.Status, got.Status)
	require.Len(t, got.Trail, 1)
	assert.Equal(t, leave.DecisionSubmitted, got.Trail[0].Decision)
}

func TestSQLiteStore_GetRequest_Absent_NilNil(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Reading an unknown id
	// THEN: (nil, nil), absence is not an error

	st := newTestStore(t)

	got, err := st.GetRequest(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_Upsert_UpdatesStatusAndTrail(t *testing.T) {
	// GIVEN: A persisted pending request
	// WHEN: Applying a manager-approved transition for the same id
	// THEN: One row remains, with the new status and grown trail

	st := newTestStore(t)
	ctx := context.Background()

	req := sampleRequest(t, "req-1", "emp-1", leave.StatusPending)
	require.NoError(t, st.ApplyTransition(ctx, req, nil))

	req.Status = leave.StatusManagerApproved
	req.Trail = append(req.Trail, leave.ApprovalEntry{
		Actor: "mgr-1", Role: leave.RoleManager, Decision: leave.DecisionApproved,
		At: time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, st.ApplyTransition(ctx, req, nil))

	got, err := st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusManagerApproved, got.Status)
	assert.Len(t, got.Trail, 2)

	all, err := st.ListByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_BalanceRoundTrip(t *testing.T) {
	// GIVEN: A transition persisted with a balance record
	// WHEN: Listing balances
	// THEN: Decimal fields survive the TEXT round trip exactly

	st := newTestStore(t)
	ctx := context.Background()

	bal := leave.Balance{
		Key:      leave.BalanceKey{EmployeeID: "emp-1", Type: leave.TypePaid, Year: 2026},
		Allotted: decimal.NewFromInt(25),
		Consumed: decimal.NewFromInt(3),
		Reserved: decimal.NewFromInt(5),
		Capped:   true,
	}
	req := sampleRequest(t, "req-1", "emp-1", leave.StatusPending)
	require.NoError(t, st.ApplyTransition(ctx, req, &bal))

	balances, err := st.ListBalances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 1)

	got := balances[0]
	assert.Equal(t, bal.Key, got.Key)
	assert.True(t, got.Allotted.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.Consumed.Equal(decimal.NewFromInt(3)))
	assert.True(t, got.Reserved.Equal(decimal.NewFromInt(5)))
	assert.True(t, got.Capped)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestSQLiteStore_ListByEmployee_NewestFirst(t *testing.T) {
	// GIVEN: Two requests for one employee, one for another
	// WHEN: Listing for the first employee
	// THEN: Only their requests return, newest first

	st := newTestStore(t)
	ctx := context.Background()

	older := sampleRequest(t, "req-1", "emp-1", leave.StatusPending)
	newer := sampleRequest(t, "req-2", "emp-1", leave.StatusPending)
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	other := sampleRequest(t, "req-3", "emp-2", leave.StatusPending)

	require.NoError(t, st.ApplyTransition(ctx, older, nil))
	require.NoError(t, st.ApplyTransition(ctx, newer, nil))
	require.NoError(t, st.ApplyTransition(ctx, other, nil))

	reqs, err := st.ListByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-2", reqs[0].ID)
	assert.Equal(t, "req-1", reqs[1].ID)
}

func TestSQLiteStore_ListActiveRequests_ExcludesTerminal(t *testing.T) {
	// GIVEN: Requests in every status
	// WHEN: Listing active requests
	// THEN: Rejected and cancelled are excluded; HR-approved remains
	//       active for conflict purposes

	st := newTestStore(t)
	ctx := context.Background()

	statuses := map[string]leave.Status{
		"req-pending":   leave.StatusPending,
		"req-mgr":       leave.StatusManagerApproved,
		"req-hr":        leave.StatusHRApproved,
		"req-rejected":  leave.StatusRejected,
		"req-cancelled": leave.StatusCancelled,
	}
	for id, status := range statuses {
		require.NoError(t, st.ApplyTransition(ctx, sampleRequest(t, id, "emp-"+id, status), nil))
	}

	active, err := st.ListActiveRequests(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	for _, req := range active {
		assert.True(t, req.Status.Active(), "status %s should be active", req.Status)
	}
}

// =============================================================================
// WORKFLOW INTEGRATION
// =============================================================================

func TestSQLiteStore_DrivesFullWorkflow(t *testing.T) {
	// GIVEN: A workflow service backed by SQLite
	// WHEN: Walking a request to HR approval and restarting the service
	// THEN: The rehydrated service sees the consumed balance

	st := newTestStore(t)
	ctx := context.Background()

	svc := leave.NewService(st, nil, nil)
	p := leave.Principal{EmployeeID: "emp-1", Role: leave.RoleEmployee, ManagerID: "mgr-1"}

	req, err := svc.Submit(ctx, p, leave.TypePaid,
		time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)

	_, err = svc.ManagerDecide(ctx, req.ID, true, "mgr-1")
	require.NoError(t, err)
	_, err = svc.HRDecide(ctx, req.ID, true, "hr-1")
	require.NoError(t, err)

	restarted := leave.NewService(st, nil, nil)
	require.NoError(t, restarted.Load(ctx))

	bal, err := restarted.GetBalance(ctx, "emp-1", leave.TypePaid, 2026)
	require.NoError(t, err)
	assert.True(t, bal.Consumed.Equal(decimal.NewFromInt(5)))
	assert.True(t, bal.Reserved.IsZero())
}
