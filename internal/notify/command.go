package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reportwell/notifyfeed/internal/model"
)

// CommandKind identifies a client-to-server command.
type CommandKind string

const (
	CommandMarkRead CommandKind = "mark_read"
	CommandClear    CommandKind = "clear"
	CommandRemove   CommandKind = "remove"
)

// Command is a single client-to-server instruction. ID is empty for
// CommandClear.
type Command struct {
	Kind CommandKind
	ID   string
}

// Codec turns a Command into the text frame written to the socket.
type Codec interface {
	Encode(cmd Command) (string, error)
}

// CodecFor returns the codec for a configured protocol name.
func CodecFor(protocol string) (Codec, error) {
	switch protocol {
	case "", model.ProtocolOpcode:
		return OpcodeCodec{}, nil
	case model.ProtocolEnvelope:
		return NewEnvelopeCodec(), nil
	default:
		return nil, fmt.Errorf("unknown command protocol %q", protocol)
	}
}

// OpcodeCodec writes the single-character opcode protocol the server
// has always accepted: "r<id>", "c" and "d<id>". An empty id yields the
// bare opcode; the server decides what it means.
type OpcodeCodec struct{}

func (OpcodeCodec) Encode(cmd Command) (string, error) {
	switch cmd.Kind {
	case CommandMarkRead:
		return "r" + cmd.ID, nil
	case CommandClear:
		return "c", nil
	case CommandRemove:
		return "d" + cmd.ID, nil
	default:
		return "", fmt.Errorf("unknown command %q", cmd.Kind)
	}
}

// Envelope is the JSON command frame used by the envelope protocol.
type Envelope struct {
	Command   CommandKind `json:"command"`
	ID        string      `json:"id,omitempty"`
	RequestID string      `json:"request_id"`
	SentAt    time.Time   `json:"sent_at"`
}

// EnvelopeCodec writes commands as tagged JSON envelopes, serialized the
// same way inbound notifications are.
type EnvelopeCodec struct {
	now   func() time.Time
	newID func() string
}

func NewEnvelopeCodec() EnvelopeCodec {
	return EnvelopeCodec{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

func (c EnvelopeCodec) Encode(cmd Command) (string, error) {
	switch cmd.Kind {
	case CommandMarkRead, CommandRemove:
	case CommandClear:
		cmd.ID = ""
	default:
		return "", fmt.Errorf("unknown command %q", cmd.Kind)
	}

	now, newID := c.now, c.newID
	if now == nil || newID == nil {
		d := NewEnvelopeCodec()
		now, newID = d.now, d.newID
	}

	data, err := json.Marshal(Envelope{
		Command:   cmd.Kind,
		ID:        cmd.ID,
		RequestID: newID(),
		SentAt:    now(),
	})
	if err != nil {
		return "", fmt.Errorf("marshaling %s envelope: %w", cmd.Kind, err)
	}
	return string(data), nil
}
