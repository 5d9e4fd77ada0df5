// Package models contains domain types for the charge telemetry backend.
package models

// Direction is the bus direction recorded for a frame.
type Direction string

const (
	DirectionRx Direction = "Rx"
	DirectionTx Direction = "Tx"
)

// MaxPayloadBytes is the largest classic CAN payload.
const MaxPayloadBytes = 8

// CandidateFrame is a structurally valid data frame parsed from one log line.
type CandidateFrame struct {
	Timestamp  float64   `json:"timestamp"` // seconds, log-relative
	Identifier uint32    `json:"identifier"`
	Direction  Direction `json:"direction"`
	Payload    []byte    `json:"payload"`
}
