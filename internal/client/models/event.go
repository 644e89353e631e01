package models

import (
	"fmt"
	"strings"
)

// EventType is the kind of row change carried by the change feed.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ParseEventType accepts the type names in any case.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(strings.ToUpper(s)); t {
	case EventInsert, EventUpdate, EventDelete:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// ChangeEvent is one delta delivered by the feed. Record is set for inserts
// and updates; OldID identifies the removed row for deletes. A Partial
// insert or update carries only Record.ID because the row was too large for
// the notification; the receiver must read it from the backend.
type ChangeEvent struct {
	Type    EventType
	Record  Bookmark
	OldID   string
	Partial bool
}

// ID returns the identifier the event applies to.
func (e ChangeEvent) ID() string {
	if e.Type == EventDelete {
		return e.OldID
	}
	return e.Record.ID
}

// EventFilter selects which event types a subscription delivers. An empty
// filter delivers every type.
type EventFilter []EventType

// AllEvents subscribes to inserts, updates and deletes.
var AllEvents = EventFilter{EventInsert, EventUpdate, EventDelete}

// Allows reports whether t passes the filter.
func (f EventFilter) Allows(t EventType) bool {
	if len(f) == 0 {
		return true
	}
	for _, ft := range f {
		if ft == t {
			return true
		}
	}
	return false
}
