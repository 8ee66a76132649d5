package domain

import "fmt"

// Reserve percent bounds accepted by the fleet API.
const (
	MinReservePercent = 0
	MaxReservePercent = 100
)

// ReserveCommand is one scheduled backup-reserve change. It is created by
// the trigger at invocation time, consumed exactly once, and never persisted.
type ReserveCommand struct {
	// TargetPercent is the backup reserve to apply, 0-100 inclusive.
	TargetPercent int

	// Label is the human-readable schedule name, e.g. "23:31 -> 100%".
	Label string
}

// Validate checks the command against the accepted range.
// Returns ErrPercentOutOfRange for anything outside 0-100.
func (c ReserveCommand) Validate() error {
	if c.TargetPercent < MinReservePercent || c.TargetPercent > MaxReservePercent {
		return fmt.Errorf("%w: got %d, want %d-%d",
			ErrPercentOutOfRange, c.TargetPercent, MinReservePercent, MaxReservePercent)
	}
	return nil
}
