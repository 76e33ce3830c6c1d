package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestSimError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *SimError
		wantStr string
	}{
		{
			name: "simple error",
			err: &SimError{
				Code:    "TEST_001",
				Message: "test error",
			},
			wantStr: "[TEST_001] test error",
		},
		{
			name: "error with cause",
			err: &SimError{
				Code:    "TEST_002",
				Message: "wrapped error",
				Cause:   errors.New("underlying"),
			},
			wantStr: "[TEST_002] wrapped error: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestSimError_WithDetail(t *testing.T) {
	err := New("TEST_001", "test").
		WithDetail("operation", "restock").
		WithDetail("day", 4)

	if err.Details["operation"] != "restock" {
		t.Errorf("Details[operation] = %v, want restock", err.Details["operation"])
	}
	if err.Details["day"] != 4 {
		t.Errorf("Details[day] = %v, want 4", err.Details["day"])
	}
}

func TestSimError_MarshalJSON(t *testing.T) {
	err := HandlerFailure("process", 3, errors.New("disk full"))

	data, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("Marshal failed: %v", jsonErr)
	}

	var result map[string]any
	if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
		t.Fatalf("Unmarshal failed: %v", jsonErr)
	}

	if result["code"] != CodeHandlerFailure {
		t.Errorf("code = %v, want %s", result["code"], CodeHandlerFailure)
	}
	if result["cause"] != "disk full" {
		t.Errorf("cause = %v, want disk full", result["cause"])
	}
	details, ok := result["details"].(map[string]any)
	if !ok {
		t.Fatalf("details not a map")
	}
	if details["operation"] != "process" {
		t.Errorf("details.operation = %v, want process", details["operation"])
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("original")
	err := Wrapf("CODE_001", cause, "wrapped %s", "value")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Message != "wrapped value" {
		t.Errorf("Message = %s, want 'wrapped value'", err.Message)
	}
}

func TestHasCode(t *testing.T) {
	err := New("TEST_001", "test")
	if !HasCode(err, "TEST_001") {
		t.Error("HasCode(err, TEST_001) = false, want true")
	}
	if HasCode(err, "TEST_002") {
		t.Error("HasCode(err, TEST_002) = true, want false")
	}
	if HasCode(errors.New("plain"), "TEST_001") {
		t.Error("HasCode(regular error) = true, want false")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !HasCode(wrapped, "TEST_001") {
		t.Error("HasCode should find code in wrapped error")
	}
}

func TestCode(t *testing.T) {
	err := New("TEST_001", "test")
	if got := Code(err); got != "TEST_001" {
		t.Errorf("Code() = %s, want TEST_001", got)
	}
	if got := Code(errors.New("regular")); got != "" {
		t.Errorf("Code(regular) = %s, want empty", got)
	}
}

func TestDetail(t *testing.T) {
	err := fmt.Errorf("run: %w", HandlerFailure("ops", 2, errors.New("boom")))

	v, ok := Detail(err, "operation")
	if !ok || v != "ops" {
		t.Errorf("Detail(operation) = %v, %v; want ops, true", v, ok)
	}
	if _, ok := Detail(errors.New("plain"), "operation"); ok {
		t.Error("Detail on plain error should report false")
	}
}

func TestFactoryFunctions(t *testing.T) {
	tests := []struct {
		name     string
		err      *SimError
		wantCode string
	}{
		{"ConfigMissingField", ConfigMissingField("field"), CodeConfigMissingField},
		{"ConfigInvalidValue", ConfigInvalidValue("field", "val", "reason"), CodeConfigInvalidValue},
		{"ConfigUnknownOperation", ConfigUnknownOperation("bake"), CodeConfigUnknownOp},
		{"TriggerEvaluation", TriggerEvaluation(0, "day index must be >= 1"), CodeTriggerEvaluation},
		{"HandlerFailure", HandlerFailure("process", 3, errors.New("err")), CodeHandlerFailure},
		{"HandlerMissing", HandlerMissing("restock"), CodeHandlerMissing},
		{"SyncPublish", SyncPublish("sim_state.json", errors.New("err")), CodeSyncPublish},
		{"SyncControl", SyncControl(errors.New("err")), CodeSyncControl},
		{"SyncNotAwaiting", SyncNotAwaiting("continue"), CodeSyncNotAwaiting},
		{"ControlTimeout", ControlTimeout("day_complete", "5s"), CodeControlTimeout},
		{"StoreOpen", StoreOpen("orders", errors.New("err")), CodeStoreOpen},
		{"StoreQuery", StoreQuery("ledger", "append", errors.New("err")), CodeStoreQuery},
		{"StoreShortage", StoreShortage("Bolt-3", 40, 12), CodeStoreShortage},
		{"StoreNotFound", StoreNotFound("orders", "customer 7"), CodeStoreNotFound},
		{"StoreUnsupportedDriver", StoreUnsupportedDriver("oracle"), CodeStoreUnsupport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("%s Code = %s, want %s", tt.name, tt.err.Code, tt.wantCode)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s Error() is empty", tt.name)
			}
		})
	}
}

func TestErrorsUnwrapChain(t *testing.T) {
	root := errors.New("root cause")
	wrapped := HandlerFailure("payroll", 5, StoreQuery("ledger", "append", root))

	if !errors.Is(wrapped, root) {
		t.Error("errors.Is should find root cause")
	}
}
