package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is an append-only audit record written by every privileged mutation.
// The write happens inside the same database transaction as the mutation it
// describes; an entry without its mutation (or vice versa) is a consistency bug.
type Entry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Action    string          `db:"action" json:"action"`
	Entity    string          `db:"entity" json:"entity"`
	EntityID  string          `db:"entity_id" json:"entity_id"`
	ActorID   uuid.UUID       `db:"actor_id" json:"actor_id"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// NewEntry builds an audit entry with a fresh id and timestamp.
func NewEntry(action, entity, entityID string, actorID uuid.UUID, details interface{}) Entry {
	var blob json.RawMessage
	if details != nil {
		blob, _ = json.Marshal(details)
	}
	return Entry{
		ID:        uuid.New(),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		ActorID:   actorID,
		Details:   blob,
		CreatedAt: time.Now().UTC(),
	}
}
