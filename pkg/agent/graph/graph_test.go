package graph

import (
	"context"
	"errors"
	"testing"
)

type testState struct {
	Steps []string
	Flag  bool
}

func appendStep(name string) NodeFunc[testState] {
	return func(_ context.Context, st testState, _ EmitFunc) (testState, error) {
		st.Steps = append(st.Steps, name)
		return st, nil
	}
}

func TestRunLinearPath(t *testing.T) {
	g := New[testState]()
	g.AddNode("a", appendStep("a"))
	g.AddNode("b", appendStep("b"))
	g.AddNode("c", appendStep("c"))
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.SetEntry("a")
	g.SetTerminal("c")

	var completed []string
	st, err := g.Run(context.Background(), testState{}, func(e Event) {
		if nc, ok := e.(NodeCompleted); ok {
			completed = append(completed, nc.Node)
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(st.Steps) != 3 || st.Steps[0] != "a" || st.Steps[1] != "b" || st.Steps[2] != "c" {
		t.Fatalf("steps = %v, want %v", st.Steps, want)
	}
	if len(completed) != 3 {
		t.Fatalf("completed events = %v, want one per node", completed)
	}
}

func TestRunConditionalRouting(t *testing.T) {
	g := New[testState]()
	g.AddNode("start", func(_ context.Context, st testState, _ EmitFunc) (testState, error) {
		st.Flag = true
		return st, nil
	})
	g.AddNode("yes", appendStep("yes"))
	g.AddNode("no", appendStep("no"))
	g.AddConditionalEdge("start", func(st testState) string {
		if st.Flag {
			return "yes"
		}
		return "no"
	})
	g.SetEntry("start")

	st, err := g.Run(context.Background(), testState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.Steps) != 1 || st.Steps[0] != "yes" {
		t.Fatalf("steps = %v, want [yes]", st.Steps)
	}
}

func TestRunRouterMayEnd(t *testing.T) {
	g := New[testState]()
	g.AddNode("only", appendStep("only"))
	g.AddConditionalEdge("only", func(testState) string { return End })
	g.SetEntry("only")

	st, err := g.Run(context.Background(), testState{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.Steps) != 1 {
		t.Fatalf("steps = %v, want single step", st.Steps)
	}
}

func TestRunUnknownNode(t *testing.T) {
	g := New[testState]()
	g.AddNode("a", appendStep("a"))
	g.AddEdge("a", "missing")
	g.SetEntry("a")

	_, err := g.Run(context.Background(), testState{}, nil)
	if err == nil {
		t.Fatal("expected error for unknown node")
	}
}

func TestRunMissingEntry(t *testing.T) {
	g := New[testState]()
	if _, err := g.Run(context.Background(), testState{}, nil); err == nil {
		t.Fatal("expected error when entry is not set")
	}
}

func TestRunNodeError(t *testing.T) {
	boom := errors.New("boom")
	g := New[testState]()
	g.AddNode("a", func(_ context.Context, st testState, _ EmitFunc) (testState, error) {
		return st, boom
	})
	g.SetEntry("a")

	_, err := g.Run(context.Background(), testState{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g := New[testState]()
	g.AddNode("a", func(_ context.Context, st testState, _ EmitFunc) (testState, error) {
		cancel()
		return st, nil
	})
	g.AddNode("b", appendStep("b"))
	g.AddEdge("a", "b")
	g.SetEntry("a")

	st, err := g.Run(ctx, testState{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(st.Steps) != 0 {
		t.Fatalf("node b ran after cancellation: %v", st.Steps)
	}
}
