package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meow-stack/factory-sim/internal/agentsync"
	"github.com/meow-stack/factory-sim/internal/types"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"", true, true}, // EOF takes the default
		{"maybe\n", true, false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tt.input), &out, "Reset stores?", tt.defaultYes)
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q, default %v) = %v, want %v", tt.input, tt.defaultYes, got, tt.want)
		}
		if !strings.HasPrefix(out.String(), "Reset stores? [") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestParseInput(t *testing.T) {
	tests := map[string]Action{
		"":       ActionContinue,
		"  c ":   ActionContinue,
		"next":   ActionContinue,
		"q":      ActionQuit,
		"QUIT":   ActionQuit,
		"s":      ActionSummary,
		"status": ActionUnknown,
		"x":      ActionUnknown,
	}
	for in, want := range tests {
		if got := ParseInput(in); got != want {
			t.Errorf("ParseInput(%q) = %v, want %v", in, got, want)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type consoleHarness struct {
	ch     *agentsync.Channel
	in     *io.PipeWriter
	out    *syncBuffer
	done   chan error
	cancel context.CancelFunc
	ctx    context.Context
}

func newConsoleHarness(t *testing.T, summary func(context.Context) (string, error)) *consoleHarness {
	t.Helper()
	return startConsole(t, &Console{Summary: summary})
}

// startConsole runs con against a channel paused after day 1 of 3.
func startConsole(t *testing.T, con *Console) *consoleHarness {
	t.Helper()
	ch := agentsync.New(nil)
	date := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := ch.Publish(types.NewSnapshot(types.RunState{DayIndex: 1, TotalDays: 3, Status: types.RunStatusDayComplete},
		types.RunModeStep, date, nil, nil)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	inR, inW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	h := &consoleHarness{ch: ch, in: inW, out: &syncBuffer{}, done: make(chan error, 1), cancel: cancel, ctx: ctx}
	con.In, con.Out, con.Control = inR, h.out, ch
	go func() { h.done <- con.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		inW.Close()
	})
	return h
}

// await starts an orchestrator-side pause and returns the delivered signal.
func (h *consoleHarness) await() <-chan types.ControlSignal {
	sigc := make(chan types.ControlSignal, 1)
	go func() {
		sig, _ := h.ch.AwaitContinue(h.ctx)
		sigc <- sig
	}()
	return sigc
}

func (h *consoleHarness) waitOutput(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(h.out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q, got:\n%s", want, h.out.String())
}

func receive(t *testing.T, sigc <-chan types.ControlSignal) types.ControlSignal {
	t.Helper()
	select {
	case sig := <-sigc:
		return sig
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control signal")
		return ""
	}
}

func TestConsole_EnterContinues(t *testing.T) {
	h := newConsoleHarness(t, nil)
	sigc := h.await()

	io.WriteString(h.in, "\n")

	if sig := receive(t, sigc); sig != types.SignalContinue {
		t.Errorf("signal = %q, want continue", sig)
	}
	h.waitOutput(t, "Day 1/3 complete (2024-01-01)")
}

func TestConsole_SummaryThenQuit(t *testing.T) {
	var calls int
	h := newConsoleHarness(t, func(context.Context) (string, error) {
		calls++
		return "ORDER SUMMARY:\n", nil
	})
	sigc := h.await()

	io.WriteString(h.in, "s\n")
	h.waitOutput(t, "ORDER SUMMARY:")
	io.WriteString(h.in, "q\n")

	if sig := receive(t, sigc); sig != types.SignalQuit {
		t.Errorf("signal = %q, want quit", sig)
	}
	if calls != 1 {
		t.Errorf("summary calls = %d, want 1", calls)
	}
}

func TestConsole_SummaryError(t *testing.T) {
	h := newConsoleHarness(t, func(context.Context) (string, error) {
		return "", errors.New("database is locked")
	})
	sigc := h.await()

	io.WriteString(h.in, "s\n")
	h.waitOutput(t, "Could not generate summary: database is locked")
	io.WriteString(h.in, "c\n")

	if sig := receive(t, sigc); sig != types.SignalContinue {
		t.Errorf("signal = %q, want continue", sig)
	}
}

func TestConsole_UnknownInputReprompts(t *testing.T) {
	h := newConsoleHarness(t, nil)
	sigc := h.await()

	io.WriteString(h.in, "x\n")
	h.waitOutput(t, `Unknown input "x"`)
	if !h.ch.Awaiting() {
		t.Fatal("unknown input must not release the pause")
	}
	io.WriteString(h.in, "\n")

	if sig := receive(t, sigc); sig != types.SignalContinue {
		t.Errorf("signal = %q, want continue", sig)
	}
}

func TestConsole_AgentContinuesFirst(t *testing.T) {
	h := newConsoleHarness(t, nil)
	sigc := h.await()
	h.waitOutput(t, "Press Enter")

	if err := h.ch.Signal(types.SignalContinue); err != nil {
		t.Fatalf("Signal() error: %v", err)
	}
	if sig := receive(t, sigc); sig != types.SignalContinue {
		t.Errorf("signal = %q, want continue", sig)
	}
	h.waitOutput(t, "(continued by agent)")
}

func TestConsole_EOFLeavesControlToAgents(t *testing.T) {
	h := newConsoleHarness(t, nil)
	sigc := h.await()
	h.waitOutput(t, "Press Enter")

	h.in.Close()

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return at EOF")
	}
	if !h.ch.Awaiting() {
		t.Fatal("EOF must not release the pause")
	}
	if err := h.ch.Signal(types.SignalQuit); err != nil {
		t.Fatalf("Signal() error: %v", err)
	}
	if sig := receive(t, sigc); sig != types.SignalQuit {
		t.Errorf("signal = %q, want quit", sig)
	}
}

func TestConsole_EOFQuitsWithoutAgents(t *testing.T) {
	h := startConsole(t, &Console{QuitOnEOF: true})
	sigc := h.await()
	h.waitOutput(t, "Press Enter")

	h.in.Close()

	if sig := receive(t, sigc); sig != types.SignalQuit {
		t.Errorf("signal = %q, want quit", sig)
	}
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return at EOF")
	}
	h.waitOutput(t, "Input closed; quitting.")
}

func TestConsole_CancelReturns(t *testing.T) {
	h := newConsoleHarness(t, nil)
	h.cancel()

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
