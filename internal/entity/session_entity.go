package entity

import "time"

// ChatSession tracks one conversational session in memory. Sessions are
// ephemeral; expiry is handled by the cache they live in.
type ChatSession struct {
	Id           string
	ThreadId     string
	UserId       string
	Tenant       string
	CreatedAt    time.Time
	LastActiveAt time.Time
}
