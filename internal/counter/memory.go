package counter

import (
	"context"
	"sync"

	"github.com/supchat-io/notifyhub/internal/types"
)

// MemoryStore is a process-local Store. It is the default when no
// Redis address is configured and the store used throughout the tests.
type MemoryStore struct {
	mu sync.Mutex
	// counts maps userId -> scoped key -> count.
	counts map[string]map[string]int64
	totals map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]map[string]int64),
		totals: make(map[string]int64),
	}
}

func (m *MemoryStore) Increment(_ context.Context, userId string, scope types.Scope, scopeId string, delta int64) error {
	if delta <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	userCounts, ok := m.counts[userId]
	if !ok {
		userCounts = make(map[string]int64)
		m.counts[userId] = userCounts
	}
	userCounts[scopedKey(userId, scope, scopeId)] += delta
	m.totals[userId] += delta

	return nil
}

func (m *MemoryStore) Decrement(_ context.Context, userId string, scope types.Scope, scopeId string, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := scopedKey(userId, scope, scopeId)
	taken := min(m.counts[userId][key], delta)
	if taken > 0 {
		m.counts[userId][key] -= taken
		m.subTotalLocked(userId, taken)
	}

	return taken, nil
}

func (m *MemoryStore) Reset(_ context.Context, userId string, scope types.Scope, scopeId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scopedKey(userId, scope, scopeId)
	prev := m.counts[userId][key]
	if prev > 0 {
		delete(m.counts[userId], key)
		m.subTotalLocked(userId, prev)
	}

	return prev, nil
}

func (m *MemoryStore) Get(_ context.Context, userId string, scope types.Scope, scopeId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts[userId][scopedKey(userId, scope, scopeId)], nil
}

func (m *MemoryStore) Total(_ context.Context, userId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.totals[userId], nil
}

func (m *MemoryStore) SumScopes(_ context.Context, userId string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum int64
	for _, count := range m.counts[userId] {
		sum += count
	}

	return sum, nil
}

// subTotalLocked clamps the total at zero. The caller holds m.mu.
func (m *MemoryStore) subTotalLocked(userId string, delta int64) {
	m.totals[userId] -= delta
	if m.totals[userId] <= 0 {
		delete(m.totals, userId)
	}
}
