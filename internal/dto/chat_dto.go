package dto

type ChatRequest struct {
	Question  string `json:"question" validate:"required"`
	SessionId string `json:"session_id"`
	ThreadId  string `json:"thread_id"`
}

type VoteRequest struct {
	ResponseId string `json:"response_id" validate:"required"`
	Upvote     bool   `json:"upvote"`
}

type VoteResponse struct {
	Success bool `json:"success"`
}

type ClearMemoriesResponse struct {
	Cleared bool `json:"cleared"`
}
