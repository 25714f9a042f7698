package domain

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable is returned by a snapshot source that cannot
// currently produce data.
var ErrSourceUnavailable = errors.New("snapshot source unavailable")

// PointError reports an operation against an unknown traffic point.
type PointError struct {
	PointID string
}

func (e *PointError) Error() string {
	return fmt.Sprintf("unknown traffic point %q", e.PointID)
}

// NewPointError creates a PointError for the given point id.
func NewPointError(pointID string) *PointError {
	return &PointError{PointID: pointID}
}

// CommandError reports a signal override that was rejected without
// changing any state.
type CommandError struct {
	PointID string
	Action  OverrideAction
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("signal command %q rejected for %s: %s", e.Action, e.PointID, e.Reason)
}

// NewCommandError creates a CommandError for the given point and action.
func NewCommandError(pointID string, action OverrideAction, reason string) *CommandError {
	return &CommandError{PointID: pointID, Action: action, Reason: reason}
}
