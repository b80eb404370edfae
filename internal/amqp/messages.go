package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions carried by ResourceEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ResourceEvent announces a change to a stored record. Record holds the
// record as the REST API renders it; it is empty for deletions.
type ResourceEvent struct {
	ID        string          `json:"id"`
	Resource  string          `json:"resource"`
	Action    string          `json:"action"`
	RecordID  string          `json:"record_id"`
	Timestamp time.Time       `json:"timestamp"`
	Record    json.RawMessage `json:"record,omitempty"`
}

// NewResourceEvent builds an event, marshalling record when it is non-nil.
func NewResourceEvent(resource, action, recordID string, record any) (*ResourceEvent, error) {
	ev := &ResourceEvent{
		ID:        uuid.NewString(),
		Resource:  resource,
		Action:    action,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("marshal %s record: %w", resource, err)
		}
		ev.Record = raw
	}
	return ev, nil
}

// RoutingKey is "<resource>.<action>", e.g. "transaction.created".
func (e *ResourceEvent) RoutingKey() string {
	return e.Resource + "." + e.Action
}

// ToJSON converts the event to JSON bytes
func (e *ResourceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ResourceEventFromJSON decodes an event body.
func ResourceEventFromJSON(data []byte) (*ResourceEvent, error) {
	var ev ResourceEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Resource == "" || ev.Action == "" {
		return nil, fmt.Errorf("event missing resource or action")
	}
	return &ev, nil
}
