// Package schedule owns simulated time: the per-day trigger rules and the
// monotonic clock the orchestrator advances.
package schedule

import (
	"time"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/types"
)

// RestockInterval is the number of simulated days between restock runs.
const RestockInterval = 3

// PayrollWeekday is the weekday payroll runs on.
const PayrollWeekday = time.Friday

// Trigger reports whether an operation is due on a given day.
type Trigger func(day int, date time.Time) bool

// Daily is due on every day.
func Daily(int, time.Time) bool { return true }

// IsRestockDay reports whether restock is due on the 1-based day index.
// The interval counts elapsed simulated days, not the day of the month.
func IsRestockDay(day int, _ time.Time) bool {
	return (day-1)%RestockInterval == 0
}

// IsPayrollDay reports whether payroll is due on date.
func IsPayrollDay(_ int, date time.Time) bool {
	return date.Weekday() == PayrollWeekday
}

// TriggerFor returns the trigger rule of op.
func TriggerFor(op types.Operation) Trigger {
	switch op {
	case types.OpRestock:
		return IsRestockDay
	case types.OpPayroll:
		return IsPayrollDay
	default:
		return Daily
	}
}

// DueOperations returns the operations due on the given day in their fixed
// execution order.
func DueOperations(day int, date time.Time) ([]types.Operation, error) {
	if err := checkInput(day, date); err != nil {
		return nil, err
	}
	due := make([]types.Operation, 0, len(types.Operations))
	for _, op := range types.Operations {
		if TriggerFor(op)(day, date) {
			due = append(due, op)
		}
	}
	return due, nil
}

func checkInput(day int, date time.Time) error {
	if day < 1 {
		return simerrors.TriggerEvaluation(day, "day index must be >= 1")
	}
	if date.IsZero() {
		return simerrors.TriggerEvaluation(day, "date is not set")
	}
	return nil
}
