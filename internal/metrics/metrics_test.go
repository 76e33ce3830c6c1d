package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meow-stack/factory-sim/internal/types"
)

func TestPrometheus_ObserveOperation(t *testing.T) {
	p := NewPrometheus()

	p.ObserveOperation(types.OpProcess, OutcomeSuccess, 10*time.Millisecond)
	p.ObserveOperation(types.OpProcess, OutcomeSuccess, 20*time.Millisecond)
	p.ObserveOperation(types.OpRestock, OutcomeDeferred, 0)

	if got := testutil.ToFloat64(p.OperationRuns.WithLabelValues("process", OutcomeSuccess)); got != 2 {
		t.Errorf("process success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.OperationRuns.WithLabelValues("restock", OutcomeDeferred)); got != 1 {
		t.Errorf("restock deferred = %v, want 1", got)
	}
	// Deferred operations never ran, so they have no duration sample.
	if got := testutil.CollectAndCount(p.OperationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestPrometheus_Gauges(t *testing.T) {
	p := NewPrometheus()
	p.SetDay(3, 10)
	p.SetPending(2)
	p.IncSyncWarnings()

	if got := testutil.ToFloat64(p.Day); got != 3 {
		t.Errorf("day = %v, want 3", got)
	}
	if got := testutil.ToFloat64(p.TotalDays); got != 10 {
		t.Errorf("total_days = %v, want 10", got)
	}
	if got := testutil.ToFloat64(p.Pending); got != 2 {
		t.Errorf("pending = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.SyncWarnings); got != 1 {
		t.Errorf("sync warnings = %v, want 1", got)
	}
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.SetDay(1, 7)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "factorysim_day 1") {
		t.Errorf("exposition missing factorysim_day:\n%s", rec.Body.String())
	}
}

func TestNoOp(t *testing.T) {
	var r Recorder = NoOp{}
	r.ObserveOperation(types.OpGenerate, OutcomeSuccess, time.Second)
	r.SetDay(1, 1)
	r.SetPending(0)
	r.IncSyncWarnings()
}
