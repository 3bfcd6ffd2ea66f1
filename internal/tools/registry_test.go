package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/parley-ai/parley/internal/log"
)

// fakeTool is a scriptable tool for dispatcher tests.
type fakeTool struct {
	name   string
	desc   string
	out    string
	err    error
	panics bool

	calls     int
	lastInput string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return f.desc }

func (f *fakeTool) Invoke(_ context.Context, input string) (string, error) {
	f.calls++
	f.lastInput = input
	if f.panics {
		panic("tool exploded")
	}
	return f.out, f.err
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())
	if err := r.Register(&fakeTool{name: "echo"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := r.Register(&fakeTool{name: "echo"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("got %v, want ErrDuplicateTool", err)
	}
}

func TestRegister_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())
	if err := r.Register(&fakeTool{name: ""}); err == nil {
		t.Error("expected error for empty tool name")
	}
}

func TestDescriptors_PreservesRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&fakeTool{name: name, desc: name + " desc"}); err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
	}

	descs := r.Descriptors()
	if len(descs) != 3 {
		t.Fatalf("got %d descriptors, want 3", len(descs))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if descs[i].Name != want {
			t.Errorf("descriptor %d = %q, want %q", i, descs[i].Name, want)
		}
	}
}

func TestDispatch_Success(t *testing.T) {
	t.Parallel()

	tool := &fakeTool{name: "echo", out: "observation text"}
	r := NewRegistry(log.NewNop())
	if err := r.Register(tool); err != nil {
		t.Fatalf("Register: %v", err)
	}

	obs := r.Dispatch(context.Background(), "echo", "some input")
	if obs != "observation text" {
		t.Errorf("observation = %q", obs)
	}
	if tool.lastInput != "some input" {
		t.Errorf("tool received %q", tool.lastInput)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())

	obs := r.Dispatch(context.Background(), "no_such_tool", "x")
	if !strings.HasPrefix(obs, "ERROR:") {
		t.Errorf("observation should carry the ERROR prefix: %q", obs)
	}
	if !strings.Contains(obs, "no_such_tool") {
		t.Errorf("observation should name the missing tool: %q", obs)
	}
}

func TestDispatch_InvokeErrorBecomesObservation(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())
	if err := r.Register(&fakeTool{name: "broken", err: errors.New("backend unreachable")}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	obs := r.Dispatch(context.Background(), "broken", "x")
	if !strings.HasPrefix(obs, "ERROR:") {
		t.Errorf("observation should carry the ERROR prefix: %q", obs)
	}
	if !strings.Contains(obs, "backend unreachable") {
		t.Errorf("observation should carry the failure reason: %q", obs)
	}
}

func TestDispatch_PanicBecomesObservation(t *testing.T) {
	t.Parallel()

	r := NewRegistry(log.NewNop())
	if err := r.Register(&fakeTool{name: "bomb", panics: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	obs := r.Dispatch(context.Background(), "bomb", "x")
	if !strings.HasPrefix(obs, "ERROR:") {
		t.Errorf("panic should become an ERROR observation: %q", obs)
	}
	if !strings.Contains(obs, "tool exploded") {
		t.Errorf("observation should carry the panic value: %q", obs)
	}
}
