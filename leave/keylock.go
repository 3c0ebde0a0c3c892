package leave

import "sync"

// =============================================================================
// KEYED MUTEX - Per-balance-key serialization
// =============================================================================

// keyedMutex serializes workflow transitions per balance key. Operations on
// different employees, or different leave types and years for the same
// employee, proceed without contention. Mutexes are created on first use
// and kept for the process lifetime; the key space is bounded by
// employees x types x years, so there is no growth concern.
type keyedMutex struct {
	locks sync.Map // BalanceKey -> *sync.Mutex
}

// lock acquires the mutex for key and returns its release function.
// Callers must release on every exit path.
func (k *keyedMutex) lock(key BalanceKey) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
