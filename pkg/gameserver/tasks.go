package gameserver

import (
	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/game/role"
	"github.com/cfoust/skeld/pkg/gamemap"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/rs/zerolog/log"
)

// The chores a Crewmate can be assigned, spread over the ship.
var taskCatalog = []struct {
	name  string
	room  gamemap.Room
	turns int
}{
	{"fix wiring", gamemap.Electrical, 3},
	{"fuel engines", gamemap.UpperEngine, 3},
	{"stabilize reactor", gamemap.Reactor, 4},
	{"review footage", gamemap.Security, 2},
	{"align output", gamemap.LowerEngine, 2},
	{"prime shields", gamemap.EngineRoom, 3},
	{"empty garbage", gamemap.Storage, 2},
	{"submit sample", gamemap.Medbay, 3},
	{"wipe down tables", gamemap.Cafeteria, 1},
}

// assignTasks deals each Crewmate their hand of tasks. Impostors get none.
func (s *Server) assignTasks() {
	s.Clients.ForEach(func(c *Client) {
		if c.Role != role.Crewmate {
			return
		}

		count := s.TasksPerPlayer
		if count > len(taskCatalog) {
			count = len(taskCatalog)
		}

		tasks := make([]*game.Task, 0, count)
		for _, index := range s.rng.Perm(len(taskCatalog))[:count] {
			entry := taskCatalog[index]
			tasks = append(tasks, game.NewTask(entry.name, entry.room, entry.turns))
		}
		s.tasks[c.ID] = tasks
	})
}

func (s *Server) findTask(id game.PlayerID, name string) *game.Task {
	for _, task := range s.tasks[id] {
		if task.Name == name {
			return task
		}
	}
	return nil
}

// taskProgress is the crew's total completion fraction. It is zero before
// tasks exist.
func (s *Server) taskProgress() float64 {
	total := 0
	completed := 0
	for _, tasks := range s.tasks {
		for _, task := range tasks {
			total++
			if task.Completed() {
				completed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// interruptTask aborts whatever the player is working on. reason is one of
// "discussion", "death", "ejection" or "disconnect".
func (s *Server) interruptTask(c *Client, reason string) {
	task := c.ActiveTask
	if task == nil {
		return
	}

	task.Interrupt()
	c.ActiveTask = nil
	c.MovementLocked = false

	// An interrupted peer may already be gone; their departure is
	// delivered separately.
	_ = c.Send(protocol.TaskInterrupted{Task: task.Name, Reason: reason})
}

// handleTaskTick advances every active task by one turn.
func (s *Server) handleTaskTick() {
	s.Clients.ForEach(func(c *Client) {
		task := c.ActiveTask
		if task == nil {
			return
		}

		done, err := task.Advance()
		if err != nil || !done {
			return
		}

		c.ActiveTask = nil
		c.MovementLocked = false

		log.Info().
			Str("player", string(c.ID)).
			Str("task", task.Name).
			Msg("task completed")

		_ = c.Send(protocol.TaskComplete{Task: task.Name})
		s.Broadcast(protocol.TaskProgress{
			PlayerID: c.ID,
			Task:     task.Name,
			Status:   "completed",
			Progress: s.taskProgress(),
		})
	})

	s.checkCrewVictory()
}

// checkCrewVictory latches the crew win exactly once when every crew task
// is complete. There is no symmetric impostor win condition.
func (s *Server) checkCrewVictory() {
	if s.gameOver || !s.GameStarted {
		return
	}

	total := 0
	for _, tasks := range s.tasks {
		total += len(tasks)
	}
	if total == 0 || s.taskProgress() < 1.0 {
		return
	}

	s.gameOver = true
	log.Info().Msg("all crew tasks complete; crew victory")
	s.Broadcast(protocol.CrewVictory{Message: "All tasks completed. Crew wins!"})
}
