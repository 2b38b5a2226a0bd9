package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_TURN_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation embedded by concrete events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewChatTurnSaved is emitted after a question/answer turn lands in long-term
// memory.
func NewChatTurnSaved(tenant, responseId, userId string) Event {
	return BaseEvent{
		Type: "CHAT_TURN_SAVED",
		Data: map[string]interface{}{
			"tenant":      tenant,
			"response_id": responseId,
			"user_id":     userId,
		},
		OccurredAt: time.Now(),
	}
}

// NewMemoryVote is emitted when a stored answer receives an up/down vote.
func NewMemoryVote(tenant, responseId string, upvote bool) Event {
	return BaseEvent{
		Type: "MEMORY_VOTE",
		Data: map[string]interface{}{
			"tenant":      tenant,
			"response_id": responseId,
			"upvote":      upvote,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIngested is emitted when a document enters the store and is
// queued for embedding.
func NewDocumentIngested(tenant string, documentId string) Event {
	return BaseEvent{
		Type: "DOCUMENT_INGESTED",
		Data: map[string]interface{}{
			"tenant":      tenant,
			"document_id": documentId,
		},
		OccurredAt: time.Now(),
	}
}
