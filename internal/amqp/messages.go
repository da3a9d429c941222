package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saldo/internal/ports"
)

// MessageVersion is bumped when the wire shape of LedgerEventMessage changes.
const MessageVersion = 1

// LedgerEventMessage carries a ledger change between processes. It holds ids
// only; consumers read the current state from the repository.
type LedgerEventMessage struct {
	ports.LedgerEvent
	Version int `json:"version"`
}

var errMalformedMessage = errors.New("malformed ledger event message")

func NewLedgerEventMessage(e ports.LedgerEvent) *LedgerEventMessage {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return &LedgerEventMessage{LedgerEvent: e, Version: MessageVersion}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *LedgerEventMessage) validate() error {
	switch m.Type {
	case ports.EventCreated, ports.EventUpdated, ports.EventDeleted:
	default:
		return fmt.Errorf("%w: event type %q", errMalformedMessage, m.Type)
	}
	switch m.Entity {
	case ports.EntityTransaction, ports.EntityCategory:
	default:
		return fmt.Errorf("%w: entity %q", errMalformedMessage, m.Entity)
	}
	if m.OwnerID == "" || m.EntityID == "" {
		return fmt.Errorf("%w: missing owner or entity id", errMalformedMessage)
	}
	if m.Version > MessageVersion {
		return fmt.Errorf("%w: unsupported version %d", errMalformedMessage, m.Version)
	}
	return nil
}
