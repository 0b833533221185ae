package game

import (
	"errors"

	"github.com/cfoust/skeld/pkg/game/taskstate"
	"github.com/cfoust/skeld/pkg/gamemap"
)

var (
	ErrTaskNotStartable = errors.New("task cannot be started in its current state")
	ErrTaskNotActive    = errors.New("task is not active")
)

// Task is a single chore assigned to a Crewmate. It has to be performed in
// its room and takes a number of task ticks to finish.
type Task struct {
	Name           string
	Room           gamemap.Room
	State          taskstate.ID
	TurnsRemaining int
	OriginalTurns  int
}

func NewTask(name string, room gamemap.Room, turns int) *Task {
	return &Task{
		Name:           name,
		Room:           room,
		State:          taskstate.Inactive,
		TurnsRemaining: turns,
		OriginalTurns:  turns,
	}
}

// Start moves the task to Active. Interrupted tasks can be picked back up;
// completed ones cannot.
func (t *Task) Start() error {
	if t.State != taskstate.Inactive && t.State != taskstate.Interrupted {
		return ErrTaskNotStartable
	}
	t.State = taskstate.Active
	t.TurnsRemaining = t.OriginalTurns
	return nil
}

// Advance consumes one task tick. It reports whether the task just
// completed.
func (t *Task) Advance() (bool, error) {
	if t.State != taskstate.Active {
		return false, ErrTaskNotActive
	}
	t.TurnsRemaining--
	if t.TurnsRemaining > 0 {
		return false, nil
	}
	t.TurnsRemaining = 0
	t.State = taskstate.Completed
	return true, nil
}

// Interrupt aborts an active task, losing all progress.
func (t *Task) Interrupt() {
	if t.State != taskstate.Active {
		return
	}
	t.State = taskstate.Interrupted
	t.TurnsRemaining = t.OriginalTurns
}

func (t *Task) Completed() bool {
	return t.State == taskstate.Completed
}
