// Package signaldb loads DBC signal databases and decodes frame payloads into
// named physical values.
package signaldb

import (
	"fmt"
	"sort"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/dbc"
	"go.einride.tech/can/pkg/descriptor"
)

const maxDataLength = len(can.Data{})

// Message is the layout of one frame identifier.
type Message struct {
	ID      uint32
	Name    string
	Size    int
	Signals []*descriptor.Signal
	mux     *descriptor.Signal
}

// Database maps frame identifiers to message layouts.
type Database struct {
	messages map[uint32]*Message
}

// Message returns the layout for id.
func (db *Database) Message(id uint32) (*Message, bool) {
	m, ok := db.messages[id]
	return m, ok
}

// IDs returns all known identifiers in ascending order.
func (db *Database) IDs() []uint32 {
	ids := make([]uint32, 0, len(db.messages))
	for id := range db.messages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Parse builds a Database from DBC source text.
func Parse(name string, data []byte) (*Database, error) {
	p := dbc.NewParser(name, data)
	if err := p.Parse(); err != nil {
		return nil, fmt.Errorf("parsing signal database %s: %w", name, err)
	}

	db := &Database{messages: make(map[uint32]*Message)}
	var valueDescs []*dbc.ValueDescriptionsDef

	for _, def := range p.Defs() {
		switch d := def.(type) {
		case *dbc.MessageDef:
			msg, err := newMessage(d)
			if err != nil {
				return nil, fmt.Errorf("parsing signal database %s: %w", name, err)
			}
			db.messages[msg.ID] = msg
		case *dbc.ValueDescriptionsDef:
			valueDescs = append(valueDescs, d)
		}
	}

	for _, vd := range valueDescs {
		if vd.SignalName == "" {
			continue
		}
		msg, ok := db.messages[vd.MessageID.ToCAN()]
		if !ok {
			continue
		}
		sig := msg.signal(string(vd.SignalName))
		if sig == nil {
			continue
		}
		for _, desc := range vd.ValueDescriptions {
			sig.ValueDescriptions = append(sig.ValueDescriptions, &descriptor.ValueDescription{
				Value:       int64(desc.Value),
				Description: desc.Description,
			})
		}
	}

	return db, nil
}

func newMessage(d *dbc.MessageDef) (*Message, error) {
	msg := &Message{
		ID:   d.MessageID.ToCAN(),
		Name: string(d.Name),
		Size: int(d.Size),
	}
	if msg.Size > maxDataLength {
		return nil, fmt.Errorf("message %s: size %d exceeds %d bytes", msg.Name, msg.Size, maxDataLength)
	}

	for i := range d.Signals {
		sd := &d.Signals[i]
		if sd.Size == 0 || sd.Size > 64 || sd.StartBit > 63 {
			return nil, fmt.Errorf("message %s: signal %s has invalid layout", msg.Name, sd.Name)
		}
		// Min and Max stay zero so decoded values are never clamped.
		sig := &descriptor.Signal{
			Name:             string(sd.Name),
			Start:            uint8(sd.StartBit),
			Length:           uint8(sd.Size),
			IsBigEndian:      sd.IsBigEndian,
			IsSigned:         sd.IsSigned,
			IsMultiplexer:    sd.IsMultiplexerSwitch,
			IsMultiplexed:    sd.IsMultiplexed,
			MultiplexerValue: uint(sd.MultiplexerSwitch),
			Scale:            sd.Factor,
			Offset:           sd.Offset,
			Unit:             sd.Unit,
		}
		if sd.IsMultiplexerSwitch {
			msg.mux = sig
		}
		msg.Signals = append(msg.Signals, sig)
	}
	return msg, nil
}

func (m *Message) signal(name string) *descriptor.Signal {
	for _, s := range m.Signals {
		if s.Name == name {
			return s
		}
	}
	return nil
}
