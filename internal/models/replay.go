package models

import "time"

// ReplayStatus represents the lifecycle of a replay stream.
type ReplayStatus string

const (
	ReplayStatusInit      ReplayStatus = "init"
	ReplayStatusStreaming ReplayStatus = "streaming"
	ReplayStatusFinished  ReplayStatus = "finished"
	ReplayStatusErrored   ReplayStatus = "errored"
	ReplayStatusCancelled ReplayStatus = "cancelled"
)

// ReplayInfo describes a registered replay.
type ReplayInfo struct {
	ID                string       `json:"id"`
	Log               string       `json:"log"`
	SkipIdle          bool         `json:"skipIdle"`
	DurationLimit     *float64     `json:"durationLimit,omitempty"`
	Status            ReplayStatus `json:"status"`
	StartedAt         time.Time    `json:"startedAt"`
	MessagesProcessed uint64       `json:"messagesProcessed"`
	SnapshotsSent     uint64       `json:"snapshotsSent"`
}
