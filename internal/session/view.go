package session

import (
	"time"

	"teamsync/internal/timeline"
	"teamsync/internal/types"
)

type State string

const (
	StateIdle              State = "idle"
	StateStarting          State = "starting"
	StatePolling           State = "polling"
	StateAwaitingUserInput State = "awaiting_user_input"
	StateCompleted         State = "completed"
	StateErrored           State = "errored"
	StateStopped           State = "stopped"
)

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateErrored, StateStopped:
		return true
	default:
		return false
	}
}

// Active reports whether a session id is bound and still making progress.
func (s State) Active() bool {
	return s == StatePolling || s == StateAwaitingUserInput
}

// View is a point-in-time copy of everything the rendering layer shows.
type View struct {
	State          State
	SessionID      string
	Entries        []types.TimelineEntry
	Tasks          []types.Task
	PendingInquiry *types.Inquiry
	Loading        bool
	LastError      string
	Result         *timeline.FinalResult
	Session        *types.Session
	// PollEvery is the loop period while polling is armed, zero otherwise.
	PollEvery time.Duration
}

func (v View) Terminal() bool {
	return v.State.Terminal()
}
