package signaldb

import (
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/descriptor"
)

// Value is one decoded signal. Label is set when the database defines a value
// description for the raw value.
type Value struct {
	Physical float64
	Label    string
}

// String returns the label when present.
func (v Value) String() string {
	return v.Label
}

// Signals maps signal name to decoded value for one frame.
type Signals map[string]Value

// Decode extracts the signals of frame id from payload. It returns nil when the
// identifier is unknown or the payload cannot hold the message layout; callers
// treat both as "no relevant data".
func (db *Database) Decode(id uint32, payload []byte) Signals {
	msg, ok := db.messages[id]
	if !ok || len(payload) < msg.Size || len(payload) > maxDataLength {
		return nil
	}

	var data can.Data
	copy(data[:], payload)

	var muxValue uint64
	if msg.mux != nil {
		muxValue = msg.mux.UnmarshalUnsigned(data)
	}

	out := make(Signals, len(msg.Signals))
	for _, sig := range msg.Signals {
		if sig.IsMultiplexed && (msg.mux == nil || uint64(sig.MultiplexerValue) != muxValue) {
			continue
		}
		out[sig.Name] = decode(sig, data)
	}
	return out
}

// decode scales the raw value without the single-bit shortcut of
// descriptor.Signal.UnmarshalPhysical, which ignores factor and offset.
func decode(sig *descriptor.Signal, data can.Data) Value {
	var raw float64
	if sig.IsSigned {
		raw = float64(sig.UnmarshalSigned(data))
	} else {
		raw = float64(sig.UnmarshalUnsigned(data))
	}
	v := Value{Physical: sig.ToPhysical(raw)}
	v.Label, _ = sig.UnmarshalValueDescription(data)
	return v
}
