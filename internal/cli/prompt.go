package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/meow-stack/factory-sim/internal/types"
)

// Confirm asks a yes/no question with the given default.
// Returns true for yes, false for no. EOF counts as the default.
func Confirm(in io.Reader, out io.Writer, prompt string, defaultYes bool) (bool, error) {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}

	fmt.Fprintf(out, "%s %s ", prompt, suffix)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return defaultYes, nil
	}

	return response == "y" || response == "yes", nil
}

// Action is what a line typed at the step prompt asks for.
type Action int

const (
	ActionUnknown Action = iota
	ActionContinue
	ActionQuit
	ActionSummary
)

// ParseInput maps a step-prompt line to an action. An empty line continues.
func ParseInput(line string) Action {
	s := strings.TrimSpace(strings.ToLower(line))
	if s == "s" || s == "summary" {
		return ActionSummary
	}
	sig, err := types.ParseControlSignal(s)
	if err != nil {
		return ActionUnknown
	}
	if sig == types.SignalQuit {
		return ActionQuit
	}
	return ActionContinue
}
