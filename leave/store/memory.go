// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	requests map[string]*leave.Request
	balances map[leave.BalanceKey]leave.Balance

	// FailNext makes the next write fail with the given error. Test hook
	// for storage-failure paths.
	FailNext error
}

func NewMemory() *Memory {
	return &Memory{
		requests: make(map[string]*leave.Request),
		balances: make(map[leave.BalanceKey]leave.Balance),
	}
}

// ApplyTransition upserts the request and the optional balance atomically.
func (m *Memory) ApplyTransition(_ context.Context, req leave.Request, bal *leave.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}

	m.requests[req.ID] = req.Clone()
	if bal != nil {
		m.balances[bal.Key] = *bal
	}
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (m *Memory) ListByEmployee(_ context.Context, employeeID string) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.Request
	for _, req := range m.requests {
		if req.EmployeeID == employeeID {
			result = append(result, *req.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) ListActiveRequests(_ context.Context) ([]leave.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.Request
	for _, req := range m.requests {
		if req.Status.Active() {
			result = append(result, *req.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) ListBalances(_ context.Context) ([]leave.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.Balance, 0, len(m.balances))
	for _, b := range m.balances {
		result = append(result, b)
	}
	return result, nil
}
