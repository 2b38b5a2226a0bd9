package graph

// Event is the closed set of signals a workflow run can emit. Consumers
// switch over the concrete types exhaustively.
type Event interface {
	isEvent()
}

// TokenDelta carries one incremental LLM output chunk produced by a node.
type TokenDelta struct {
	Node string
	Text string
}

// NodeCompleted signals that a node finished and carries the state snapshot
// it returned.
type NodeCompleted struct {
	Node  string
	State interface{}
}

// StreamError signals that the run failed; no further events follow.
type StreamError struct {
	Err error
}

// StreamEnd signals a successful run; no further events follow.
type StreamEnd struct{}

func (TokenDelta) isEvent()    {}
func (NodeCompleted) isEvent() {}
func (StreamError) isEvent()   {}
func (StreamEnd) isEvent()     {}

// EmitFunc receives events as the run produces them.
type EmitFunc func(Event)
