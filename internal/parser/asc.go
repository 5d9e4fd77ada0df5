package parser

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/charge-telemetry/backend/internal/models"
)

// LineKind classifies the outcome of parsing one ASC line.
type LineKind int

const (
	// LineSkipped lines carry nothing usable: comments, headers, short or malformed lines.
	LineSkipped LineKind = iota
	// LineTimestamped lines have a valid timestamp but are not data frames.
	LineTimestamped
	// LineFrame lines produced a CandidateFrame.
	LineFrame
)

// minTokens is the shortest data line: "<ts> <ch> <id> <dir> d <len>" plus one field.
const minTokens = 7

// headerPrefixes start comment and header lines in Vector ASC exports.
var headerPrefixes = []string{"//", "date", "base", "internal", "Begin", "End"}

// Line is the result of ParseLine.
type Line struct {
	Kind      LineKind
	Timestamp float64
	Frame     models.CandidateFrame
}

// ParseLine parses one line of a Vector CANalyzer/CANoe ASC trace.
// Example: "0.00503 1  545  Rx   d 8 14 00 3F F0 AB BF CA C1"
//
// The timestamp is reported even when the rest of the line is rejected so the
// caller can enforce elapsed-time budgets on every timestamped line.
func ParseLine(raw string) Line {
	for _, prefix := range headerPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return Line{}
		}
	}

	parts := strings.Fields(raw)
	if len(parts) < minTokens {
		return Line{}
	}

	ts, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Line{}
	}
	line := Line{Kind: LineTimestamped, Timestamp: ts}

	dir, ok := findDirection(parts)
	if !ok {
		return line
	}
	dIdx := indexOf(parts, "d")
	if dIdx < 0 || dIdx+1 >= len(parts) {
		return line
	}

	id, err := strconv.ParseUint(parts[2], 16, 32)
	if err != nil {
		return line
	}

	payload, ok := parsePayload(parts, dIdx)
	if !ok {
		return line
	}

	line.Kind = LineFrame
	line.Frame = models.CandidateFrame{
		Timestamp:  ts,
		Identifier: uint32(id),
		Direction:  dir,
		Payload:    payload,
	}
	return line
}

// parsePayload reads the declared length after the "d" marker and the hex byte
// tokens that follow it.
func parsePayload(parts []string, dIdx int) ([]byte, bool) {
	n, err := strconv.Atoi(parts[dIdx+1])
	if err != nil || n < 0 || n > models.MaxPayloadBytes {
		return nil, false
	}
	start := dIdx + 2
	if start+n > len(parts) {
		return nil, false
	}

	var sb strings.Builder
	sb.Grow(n * 2)
	for _, tok := range parts[start : start+n] {
		sb.WriteString(tok)
	}
	payload, err := hex.DecodeString(sb.String())
	if err != nil || len(payload) != n {
		return nil, false
	}
	return payload, true
}

func findDirection(parts []string) (models.Direction, bool) {
	for _, p := range parts {
		switch p {
		case string(models.DirectionRx):
			return models.DirectionRx, true
		case string(models.DirectionTx):
			return models.DirectionTx, true
		}
	}
	return "", false
}

func indexOf(parts []string, tok string) int {
	for i, p := range parts {
		if p == tok {
			return i
		}
	}
	return -1
}
