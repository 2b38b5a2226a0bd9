// Package graph implements a small finite-state-machine engine for agent
// workflows. A graph is a set of named nodes connected by static edges or by
// pure routing functions; Run walks the graph sequentially from the entry
// node, threading a typed state value through every node and emitting tagged
// events along the way.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// End is the pseudo-node a router may return to terminate the run.
const End = "__end__"

// NodeFunc executes one workflow step. It receives the current state and
// returns the next state; emit may be used to surface incremental output.
type NodeFunc[S any] func(ctx context.Context, state S, emit EmitFunc) (S, error)

// Router picks the next node purely from the state.
type Router[S any] func(state S) string

type Graph[S any] struct {
	nodes    map[string]NodeFunc[S]
	edges    map[string]string
	routers  map[string]Router[S]
	entry    string
	terminal string
}

func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:   make(map[string]NodeFunc[S]),
		edges:   make(map[string]string),
		routers: make(map[string]Router[S]),
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) {
	g.nodes[name] = fn
}

// AddEdge wires an unconditional transition from one node to the next.
func (g *Graph[S]) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddConditionalEdge wires a routing function; it takes precedence over a
// static edge from the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router Router[S]) {
	g.routers[from] = router
}

func (g *Graph[S]) SetEntry(name string) {
	g.entry = name
}

// SetTerminal marks the node after which the run ends when no edge or router
// says otherwise.
func (g *Graph[S]) SetTerminal(name string) {
	g.terminal = name
}

// Run executes the graph from the entry node until End, a terminal node, or a
// node without outgoing transitions. The returned state is the last state
// produced, even on error. Context cancellation is checked before every node.
func (g *Graph[S]) Run(ctx context.Context, state S, emit EmitFunc) (S, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	if g.entry == "" {
		return state, errors.New("graph: entry node not set")
	}

	current := g.entry
	for current != End {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		node, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("graph: unknown node %q", current)
		}

		next, err := node(ctx, state, emit)
		if err != nil {
			return state, fmt.Errorf("graph: node %q: %w", current, err)
		}
		state = next
		emit(NodeCompleted{Node: current, State: state})

		switch {
		case g.routers[current] != nil:
			current = g.routers[current](state)
		case g.edges[current] != "":
			current = g.edges[current]
		case current == g.terminal:
			current = End
		default:
			current = End
		}
	}
	return state, nil
}
