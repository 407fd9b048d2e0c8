package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ChangeMessage announces a successful write. It carries only identifiers;
// consumers read current state from the store.
type ChangeMessage struct {
	Entity    core.Entity `json:"entity"`
	Action    core.Action `json:"action"`
	ID        string      `json:"id"`
	Month     string      `json:"month,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewChangeMessage(c core.Change) *ChangeMessage {
	msg := &ChangeMessage{
		Entity:    c.Entity,
		Action:    c.Action,
		ID:        c.ID,
		Timestamp: time.Now(),
	}
	if c.Month != nil {
		msg.Month = c.Month.String()
	}
	return msg
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects unknown entities.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Entity {
	case core.EntityTransaction, core.EntityBudget, core.EntityCategory:
	default:
		return nil, fmt.Errorf("unknown entity %q", msg.Entity)
	}
	return &msg, nil
}

// Change converts the message back to a core.Change. An empty month stays nil.
func (m *ChangeMessage) Change() (core.Change, error) {
	c := core.Change{Entity: m.Entity, Action: m.Action, ID: m.ID}
	if m.Month == "" {
		return c, nil
	}
	month, err := core.ParseYearMonth(m.Month)
	if err != nil {
		return core.Change{}, fmt.Errorf("parse month: %w", err)
	}
	c.Month = &month
	return c, nil
}
