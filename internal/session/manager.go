// Package session tracks the replays currently streaming.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/charge-telemetry/backend/internal/models"
)

// DefaultMaxReplays limits concurrent replays to bound open file handles.
const DefaultMaxReplays = 10

// ErrAtCapacity is returned by Start when the replay limit is reached.
var ErrAtCapacity = errors.New("too many concurrent replays")

// Manager is the registry of active replays. Entries exist only while their
// stream is open.
type Manager struct {
	mu      sync.RWMutex
	replays map[string]*models.ReplayInfo
	max     int
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewManager creates a registry admitting at most max concurrent replays.
func NewManager(max int, logger logrus.FieldLogger) *Manager {
	if max < 1 {
		max = DefaultMaxReplays
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		replays: make(map[string]*models.ReplayInfo),
		max:     max,
		log:     logger,
		now:     time.Now,
	}
}

// Start registers a replay and returns its info.
func (m *Manager) Start(log string, skipIdle bool, duration *float64) (*models.ReplayInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.replays) >= m.max {
		return nil, ErrAtCapacity
	}

	info := &models.ReplayInfo{
		ID:            uuid.New().String(),
		Log:           log,
		SkipIdle:      skipIdle,
		DurationLimit: duration,
		Status:        models.ReplayStatusStreaming,
		StartedAt:     m.now(),
	}
	m.replays[info.ID] = info

	m.log.WithFields(logrus.Fields{"replay_id": shortID(info.ID), "log": log, "active": len(m.replays)}).Debug("replay registered")
	return copyInfo(info), nil
}

// Observe updates live counters from a record sent on the replay's stream.
func (m *Manager) Observe(id string, record any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.replays[id]
	if !ok {
		return
	}

	switch r := record.(type) {
	case *models.ProgressRecord:
		info.MessagesProcessed = r.MessagesProcessed
		info.SnapshotsSent++
	case *models.SummaryRecord:
		info.MessagesProcessed = r.TotalMessages
		info.Status = models.ReplayStatusFinished
	case *models.ErrorRecord:
		info.Status = models.ReplayStatusErrored
	}
}

// Finish removes a replay from the registry.
func (m *Manager) Finish(id string, status models.ReplayStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.replays[id]
	if !ok {
		return
	}
	delete(m.replays, id)

	m.log.WithFields(logrus.Fields{
		"replay_id": shortID(id),
		"log":       info.Log,
		"outcome":   status,
		"messages":  info.MessagesProcessed,
	}).Debug("replay unregistered")
}

// Get returns a snapshot of one replay.
func (m *Manager) Get(id string) (*models.ReplayInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.replays[id]
	if !ok {
		return nil, false
	}
	return copyInfo(info), true
}

// List returns snapshots of all active replays, oldest first.
func (m *Manager) List() []*models.ReplayInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.ReplayInfo, 0, len(m.replays))
	for _, info := range m.replays {
		list = append(list, copyInfo(info))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartedAt.Before(list[j].StartedAt)
	})
	return list
}

// Len returns the number of active replays.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.replays)
}

// Capacity returns the replay limit.
func (m *Manager) Capacity() int {
	return m.max
}

func copyInfo(info *models.ReplayInfo) *models.ReplayInfo {
	c := *info
	return &c
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
