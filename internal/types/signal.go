package types

// Decision is the per-bar output of a strategy evaluator.
type Decision string

const (
	// DecisionEnterLong tells the engine to open a long position.
	DecisionEnterLong Decision = "enter_long"
	// DecisionEnterShort tells the engine to open a short position.
	DecisionEnterShort Decision = "enter_short"
	// DecisionExitLong tells the engine to close the current long position.
	DecisionExitLong Decision = "exit_long"
	// DecisionExitShort tells the engine to close the current short position.
	DecisionExitShort Decision = "exit_short"
	// DecisionHold tells the engine to take no action this bar.
	DecisionHold Decision = "hold"
)

// IsEntry reports whether the decision opens a new position.
func (d Decision) IsEntry() bool {
	return d == DecisionEnterLong || d == DecisionEnterShort
}

// IsExit reports whether the decision closes an open position.
func (d Decision) IsExit() bool {
	return d == DecisionExitLong || d == DecisionExitShort
}
