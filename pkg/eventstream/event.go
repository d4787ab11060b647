package eventstream

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ecofes/lubebot/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeQueryAnswered is emitted after a user query is answered and recorded.
	EventTypeQueryAnswered = "query.answered"

	// EventTypeLeadCaptured is emitted after a lead is stored.
	EventTypeLeadCaptured = "lead.captured"
)

// Event is a transport-neutral event payload. Exactly one of Query and
// Lead is set, matching EventType.
type Event struct {
	SchemaVersion int                  `json:"schema_version"`
	EventType     string               `json:"event_type"`
	EventID       string               `json:"event_id"`
	EmittedAt     time.Time            `json:"emitted_at"`
	Query         *storage.QueryRecord `json:"query,omitempty"`
	Lead          *storage.Lead        `json:"lead,omitempty"`
}

// NewQueryAnswered wraps a stored query record.
func NewQueryAnswered(rec *storage.QueryRecord) *Event {
	return newEvent(EventTypeQueryAnswered, rec, nil)
}

// NewLeadCaptured wraps a stored lead.
func NewLeadCaptured(lead *storage.Lead) *Event {
	return newEvent(EventTypeLeadCaptured, nil, lead)
}

func newEvent(eventType string, q *storage.QueryRecord, l *storage.Lead) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Query:         q,
		Lead:          l,
	}
}

// Key returns the partitioning key: the user for queries, the email for
// leads, the event id otherwise.
func (e *Event) Key() string {
	switch {
	case e.Query != nil && e.Query.UserID != 0:
		return "user:" + strconv.FormatInt(e.Query.UserID, 10)
	case e.Lead != nil:
		return "lead:" + e.Lead.Email
	default:
		return e.EventID
	}
}
