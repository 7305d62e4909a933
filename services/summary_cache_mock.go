package services

import (
	"context"
	"sync"
)

type cachedSummary struct {
	generation int64
	summary    BudgetSummary
}

// MockSummaryCache is an in-memory SummaryCache for testing
type MockSummaryCache struct {
	summaries   map[uint]cachedSummary
	generations map[uint]int64
	mu          sync.RWMutex
}

// NewMockSummaryCache creates an empty mock cache
func NewMockSummaryCache() *MockSummaryCache {
	return &MockSummaryCache{
		summaries:   make(map[uint]cachedSummary),
		generations: make(map[uint]int64),
	}
}

// SetAsMockForTesting sets this mock as the global summary cache for testing
func (m *MockSummaryCache) SetAsMockForTesting() {
	SetSummaryCache(m)
}

// Generation returns how many times the project was invalidated
func (m *MockSummaryCache) Generation(_ context.Context, projectID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[projectID], nil
}

// Get returns a copy of the summary stored for the generation
func (m *MockSummaryCache) Get(_ context.Context, projectID uint, generation int64) (*BudgetSummary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.summaries[projectID]
	if !ok || entry.generation != generation {
		return nil, false, nil
	}
	summary := entry.summary
	return &summary, true, nil
}

// Set stores a copy of the summary under its generation
func (m *MockSummaryCache) Set(_ context.Context, generation int64, summary *BudgetSummary) error {
	m.mu.Lock()
	m.summaries[summary.ProjectID] = cachedSummary{generation: generation, summary: *summary}
	m.mu.Unlock()
	return nil
}

// Invalidate moves the project to a new generation
func (m *MockSummaryCache) Invalidate(_ context.Context, projectID uint) error {
	m.mu.Lock()
	m.generations[projectID]++
	m.mu.Unlock()
	return nil
}

// Cached reports whether a summary of the current generation is stored (for testing assertions)
func (m *MockSummaryCache) Cached(projectID uint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.summaries[projectID]
	return ok && entry.generation == m.generations[projectID]
}

// Invalidations returns how many times the project was invalidated
func (m *MockSummaryCache) Invalidations(projectID uint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.generations[projectID])
}
