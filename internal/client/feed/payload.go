package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/google/uuid"
)

// payload is the JSON document published by the notify trigger.
type payload struct {
	Type      string           `json:"type"`
	Table     string           `json:"table"`
	Partial   bool             `json:"partial,omitempty"`
	Record    *models.Bookmark `json:"record"`
	OldRecord *struct {
		ID string `json:"id"`
	} `json:"old_record"`
}

var ErrMalformedPayload = errors.New("malformed change payload")

// Decode turns one published payload into a ChangeEvent.
func Decode(data []byte) (models.ChangeEvent, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	t, err := models.ParseEventType(p.Type)
	if err != nil {
		return models.ChangeEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := models.ChangeEvent{Type: t, Partial: p.Partial}
	switch t {
	case models.EventInsert, models.EventUpdate:
		if p.Record == nil || p.Record.ID == "" {
			return models.ChangeEvent{}, fmt.Errorf("%w: %s without record", ErrMalformedPayload, t)
		}
		ev.Record = *p.Record
	case models.EventDelete:
		if p.OldRecord == nil || p.OldRecord.ID == "" {
			return models.ChangeEvent{}, fmt.Errorf("%w: delete without old record", ErrMalformedPayload)
		}
		ev.OldID = p.OldRecord.ID
	}
	return ev, nil
}

// Encode is the inverse of Decode. Relays and tests use it to publish events.
func Encode(resource string, ev models.ChangeEvent) ([]byte, error) {
	p := payload{Type: string(ev.Type), Table: resource, Partial: ev.Partial}
	switch ev.Type {
	case models.EventDelete:
		p.OldRecord = &struct {
			ID string `json:"id"`
		}{ID: ev.OldID}
	default:
		rec := ev.Record
		p.Record = &rec
	}
	return json.Marshal(p)
}

// ChannelName is the per-identity channel both transports use. Identifiers
// are canonicalized to the lowercase form Postgres prints for uuid values.
func ChannelName(resource, userID string) string {
	if id, err := uuid.Parse(userID); err == nil {
		return resource + ":" + id.String()
	}
	return resource + ":" + strings.ToLower(userID)
}
