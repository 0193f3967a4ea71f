package session

import "errors"

// Sentinel failure categories, mirroring pkg/config/errors.go's
// one-sentinel-per-failure-category taxonomy and spec §7's error table.
var (
	// ErrUnknownAction is the ActionInvalid category: the action name isn't
	// in the scenario's catalog. The session still produces a failed
	// ActionResult rather than propagating this — it never escapes Act().
	ErrUnknownAction = errors.New("unknown action")
	// ErrBudgetExceeded is returned by Act when called after IsDone already
	// reports a budget termination.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrSessionDone is returned by Act when called after termination.
	ErrSessionDone = errors.New("session already terminated")
)
