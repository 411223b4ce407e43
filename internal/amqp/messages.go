package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expense-tracker/internal/core"
)

// EventType names a change to the ledger.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted:
		return true
	}
	return false
}

// ExpenseEvent carries a snapshot of the affected expense. For deletions the
// snapshot is the record as it was before removal.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	ExpenseID   int64     `json:"expense_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	CreatedAt   string    `json:"created_at"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        t,
		ExpenseID:   e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		CreatedAt:   e.CreatedAt.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event published by PublishExpenseEvent.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
