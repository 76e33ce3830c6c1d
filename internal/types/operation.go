package types

import (
	"fmt"
	"strings"
)

// Operation identifies one of the fixed business operations of a simulated day.
type Operation string

const (
	OpGenerate    Operation = "generate" // GenerateOrders
	OpProcess     Operation = "process"  // ProcessOrders
	OpManufacture Operation = "ops"      // AdvanceManufacturing
	OpRestock     Operation = "restock"  // Restock
	OpPayroll     Operation = "payroll"  // RunPayroll
)

// Operations lists every operation in its fixed within-day execution order.
var Operations = []Operation{OpGenerate, OpProcess, OpManufacture, OpRestock, OpPayroll}

// Valid returns true if this is a recognized operation.
func (o Operation) Valid() bool {
	switch o {
	case OpGenerate, OpProcess, OpManufacture, OpRestock, OpPayroll:
		return true
	}
	return false
}

// Index returns the position of the operation in the execution order, or -1.
func (o Operation) Index() int {
	for i, op := range Operations {
		if op == o {
			return i
		}
	}
	return -1
}

// DisplayName returns the long human-readable operation name.
func (o Operation) DisplayName() string {
	switch o {
	case OpGenerate:
		return "GenerateOrders"
	case OpProcess:
		return "ProcessOrders"
	case OpManufacture:
		return "AdvanceManufacturing"
	case OpRestock:
		return "Restock"
	case OpPayroll:
		return "RunPayroll"
	}
	return string(o)
}

var operationAliases = map[string]Operation{
	"generate":             OpGenerate,
	"generateorders":       OpGenerate,
	"gen":                  OpGenerate,
	"process":              OpProcess,
	"processorders":        OpProcess,
	"ops":                  OpManufacture,
	"manufacture":          OpManufacture,
	"advancemanufacturing": OpManufacture,
	"restock":              OpRestock,
	"inventory":            OpRestock,
	"payroll":              OpPayroll,
	"runpayroll":           OpPayroll,
}

// ParseOperation resolves an operation name. Short ids and the long names are
// accepted, case-insensitively, with or without separators.
func ParseOperation(name string) (Operation, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	if op, ok := operationAliases[key]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q (valid: generate, process, ops, restock, payroll)", name)
}

// ParseOperations resolves a list of names, dropping duplicates and returning
// the result in execution order.
func ParseOperations(names []string) ([]Operation, error) {
	seen := make(map[Operation]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			op, err := ParseOperation(part)
			if err != nil {
				return nil, err
			}
			seen[op] = true
		}
	}
	out := make([]Operation, 0, len(seen))
	for _, op := range Operations {
		if seen[op] {
			out = append(out, op)
		}
	}
	return out, nil
}

// OperationNames converts operations to their string ids.
func OperationNames(ops []Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = string(op)
	}
	return out
}
