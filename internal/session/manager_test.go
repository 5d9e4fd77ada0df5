package session

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charge-telemetry/backend/internal/models"
)

func newTestManager(max int) *Manager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewManager(max, logger)
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager(2)

	budget := 30.0
	info, err := m.Start("charge", true, &budget)
	require.NoError(t, err)
	_, err = uuid.Parse(info.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.ReplayStatusStreaming, info.Status)
	assert.Equal(t, 30.0, *info.DurationLimit)

	m.Observe(info.ID, &models.ProgressRecord{MessagesProcessed: 1000})
	m.Observe(info.ID, &models.ProgressRecord{MessagesProcessed: 2000})

	got, ok := m.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), got.MessagesProcessed)
	assert.Equal(t, uint64(2), got.SnapshotsSent)

	m.Observe(info.ID, &models.SummaryRecord{TotalMessages: 2345})
	got, _ = m.Get(info.ID)
	assert.Equal(t, uint64(2345), got.MessagesProcessed)
	assert.Equal(t, models.ReplayStatusFinished, got.Status)

	m.Finish(info.ID, models.ReplayStatusFinished)
	_, ok = m.Get(info.ID)
	assert.False(t, ok)
	assert.Zero(t, m.Len())

	// Unknown ids are ignored.
	m.Observe("missing", &models.ProgressRecord{})
	m.Finish("missing", models.ReplayStatusCancelled)
}

func TestManager_Capacity(t *testing.T) {
	m := newTestManager(2)

	a, err := m.Start("charge", true, nil)
	require.NoError(t, err)
	_, err = m.Start("supercharge", false, nil)
	require.NoError(t, err)

	_, err = m.Start("charge", true, nil)
	assert.ErrorIs(t, err, ErrAtCapacity)

	m.Finish(a.ID, models.ReplayStatusCancelled)
	_, err = m.Start("charge", true, nil)
	assert.NoError(t, err)

	assert.Equal(t, DefaultMaxReplays, newTestManager(0).Capacity())
}

func TestManager_ListOrderAndIsolation(t *testing.T) {
	m := newTestManager(5)
	base := time.Date(2019, 1, 13, 10, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, _ := m.Start("charge", true, nil)
	second, _ := m.Start("supercharge", true, nil)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	list[0].Log = "mutated"
	got, _ := m.Get(first.ID)
	assert.Equal(t, "charge", got.Log)
}

func TestManager_Concurrent(t *testing.T) {
	m := newTestManager(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := m.Start("charge", true, nil)
			if !assert.NoError(t, err) {
				return
			}
			for j := uint64(1); j <= 10; j++ {
				m.Observe(info.ID, &models.ProgressRecord{MessagesProcessed: j * 1000})
			}
			_ = m.List()
			m.Finish(info.ID, models.ReplayStatusFinished)
		}()
	}
	wg.Wait()
	assert.Zero(t, m.Len())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("1234567890"))
}
