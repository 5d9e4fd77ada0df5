// mock_storage.go - Mock ledger implementation for testing
package testutil

import (
	"context"
	"sync"

	"github.com/charge-telemetry/backend/internal/models"
)

// MockLedger implements storage.UserLedger in memory
type MockLedger struct {
	mu     sync.Mutex
	totals map[string]*models.CarbonTotals
	// Err, when set, is returned by every call
	Err    error
	closed bool
}

// NewMockLedger creates an empty mock ledger
func NewMockLedger() *MockLedger {
	return &MockLedger{totals: make(map[string]*models.CarbonTotals)}
}

func (m *MockLedger) entry(userID string) *models.CarbonTotals {
	t, ok := m.totals[userID]
	if !ok {
		t = &models.CarbonTotals{UserID: userID}
		m.totals[userID] = t
	}
	return t
}

func (m *MockLedger) AddCarbonReduction(_ context.Context, userID string, kg float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	t := m.entry(userID)
	t.TotalCarbonReductionKg += kg
	return t.TotalCarbonReductionKg, nil
}

func (m *MockLedger) AddRewardPoints(_ context.Context, userID string, points float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	t := m.entry(userID)
	t.CarbonRewardPoints += points
	return t.CarbonRewardPoints, nil
}

func (m *MockLedger) Totals(_ context.Context, userID string) (*models.CarbonTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.totals[userID]
	if !ok {
		return &models.CarbonTotals{UserID: userID}, nil
	}
	c := *t
	return &c, nil
}

func (m *MockLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockLedger) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
