package types

import (
	"testing"
)

func TestRunStatus(t *testing.T) {
	t.Run("Valid returns true for valid statuses", func(t *testing.T) {
		valid := []RunStatus{
			RunStatusNotStarted, RunStatusInitializing, RunStatusRunning,
			RunStatusDayComplete, RunStatusFinished, RunStatusInterrupted, RunStatusError,
		}
		for _, s := range valid {
			if !s.Valid() {
				t.Errorf("%s should be valid", s)
			}
		}
		if RunStatus("done").Valid() {
			t.Error("done should not be valid")
		}
	})

	t.Run("IsTerminal", func(t *testing.T) {
		for _, s := range []RunStatus{RunStatusFinished, RunStatusInterrupted, RunStatusError} {
			if !s.IsTerminal() {
				t.Errorf("%s should be terminal", s)
			}
		}
		for _, s := range []RunStatus{RunStatusNotStarted, RunStatusInitializing, RunStatusRunning, RunStatusDayComplete} {
			if s.IsTerminal() {
				t.Errorf("%s should not be terminal", s)
			}
		}
	})
}

func TestRunMode(t *testing.T) {
	if !RunModeBatch.Valid() || !RunModeStep.Valid() {
		t.Error("batch and step should be valid")
	}
	if RunMode("interactive").Valid() {
		t.Error("interactive should not be valid")
	}
}

func TestParseControlSignal(t *testing.T) {
	tests := []struct {
		in      string
		want    ControlSignal
		wantErr bool
	}{
		{"", SignalContinue, false},
		{"c", SignalContinue, false},
		{"next", SignalContinue, false},
		{"q", SignalQuit, false},
		{"stop", SignalQuit, false},
		{"s", "", true},
		{"x", "", true},
	}
	for _, tt := range tests {
		got, err := ParseControlSignal(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseControlSignal(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseControlSignal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !SignalContinue.Valid() || !SignalQuit.Valid() || ControlSignal("pause").Valid() {
		t.Error("only continue and quit are valid signals")
	}
}

func TestRunState_Progress(t *testing.T) {
	tests := []struct {
		day, total int
		want       float64
	}{
		{0, 7, 0},
		{1, 7, 14.3},
		{3, 7, 42.9},
		{7, 7, 100},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 0, 0},
	}
	for _, tt := range tests {
		s := RunState{DayIndex: tt.day, TotalDays: tt.total}
		if got := s.Progress(); got != tt.want {
			t.Errorf("Progress(%d/%d) = %v, want %v", tt.day, tt.total, got, tt.want)
		}
	}
}
