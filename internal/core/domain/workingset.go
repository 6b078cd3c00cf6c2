package domain

import "time"

// State names the two states of a working set.
type State string

const (
	StateAbsent    State = "absent"
	StatePopulated State = "populated"
)

// WorkingSet holds the table on screen (Current) and the table produced by
// the most recent generate (Baseline). Both are absent until the first
// successful generate. Refined is set by refine and cleared by generate and
// reset; it stands in for a structural Current/Baseline comparison.
type WorkingSet struct {
	Current   Table `json:"current" msgpack:"current"`
	Baseline  Table `json:"baseline" msgpack:"baseline"`
	Populated bool  `json:"populated" msgpack:"populated"`
	Refined   bool  `json:"refined" msgpack:"refined"`
}

// State reports whether the working set is absent or populated.
func (w WorkingSet) State() State {
	if w.Populated {
		return StatePopulated
	}
	return StateAbsent
}

// Session is one dashboard user's exclusive working set plus the message
// slot shown next to the controls.
type Session struct {
	ID         string     `json:"id" msgpack:"id"`
	WorkingSet WorkingSet `json:"working_set" msgpack:"working_set"`
	Message    string     `json:"message,omitempty" msgpack:"message"`
	CreatedAt  time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" msgpack:"updated_at"`
}

// Controls is the enabled/disabled state of the three dashboard buttons.
type Controls struct {
	Generate bool `json:"generate"`
	Refine   bool `json:"refine"`
	Reset    bool `json:"reset"`
}

// Action names a working-set transition.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionRefine   Action = "refine"
	ActionReset    Action = "reset"
)

// SessionEvent is published after every action that changes a session.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Action    Action    `json:"action"`
	State     State     `json:"state"`
	Rows      int       `json:"rows"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}
