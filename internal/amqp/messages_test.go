package amqp

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewResourceEvent(t *testing.T) {
	ev, err := NewResourceEvent("budget", ActionCreated, "3", map[string]any{"Category": "Food"})
	if err != nil {
		t.Fatalf("NewResourceEvent() error = %v", err)
	}

	if ev.ID == "" {
		t.Error("ID should be set")
	}
	if ev.RoutingKey() != "budget.created" {
		t.Errorf("RoutingKey() = %q, want budget.created", ev.RoutingKey())
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
	var record map[string]any
	if err := json.Unmarshal(ev.Record, &record); err != nil || record["Category"] != "Food" {
		t.Errorf("Record = %s, want the marshalled budget", ev.Record)
	}
}

func TestNewResourceEvent_Deletion(t *testing.T) {
	ev, err := NewResourceEvent("transaction", ActionDeleted, "9", nil)
	if err != nil {
		t.Fatalf("NewResourceEvent() error = %v", err)
	}
	if ev.Record != nil {
		t.Errorf("Record = %s, want empty", ev.Record)
	}

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := ResourceEventFromJSON(body)
	if err != nil {
		t.Fatalf("ResourceEventFromJSON() error = %v", err)
	}
	if parsed.RoutingKey() != "transaction.deleted" || parsed.RecordID != "9" {
		t.Errorf("parsed = %+v", parsed)
	}
	if !parsed.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, ev.Timestamp)
	}
}

func TestResourceEventFromJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"resource":`,
		"missing action": `{"resource":"budget"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ResourceEventFromJSON([]byte(body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
