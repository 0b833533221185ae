package gameserver

import (
	"fmt"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/game/phase"
	"github.com/cfoust/skeld/pkg/game/role"
	"github.com/cfoust/skeld/pkg/gamemap"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/rs/zerolog/log"
)

// handleAction applies one inbound action against the session. Precondition
// failures produce an error reply to the sender and leave state untouched.
func (s *Server) handleAction(client *Client, action protocol.Action) {
	if s.Clients.GetClientByID(client.ID) != client {
		// straggler from a connection the engine already dropped
		return
	}

	switch a := action.(type) {
	case *protocol.Move:
		s.handleMove(client, a.Destination)
	case *protocol.Kill:
		s.handleKill(client, a.Target)
	case *protocol.Report:
		s.handleReport(client)
	case *protocol.Vote:
		s.handleVote(client, a.Vote)
	case *protocol.CallMeeting:
		s.handleCallMeeting(client)
	case *protocol.Chat:
		s.handleChat(client, a.Message)
	case *protocol.TaskStart:
		s.handleTaskStart(client, a.Task)
	default:
		_ = client.Error(fmt.Sprintf("unsupported action %s", action.Action()))
	}
}

func (s *Server) handleMove(client *Client, destination gamemap.Room) {
	if !client.Alive ||
		client.MovementLocked ||
		!gamemap.IsReachable(client.Location, destination) {
		_ = client.Error("Invalid move.")
		return
	}

	from := client.Location
	client.Location = destination

	log.Debug().
		Str("player", string(client.ID)).
		Str("from", string(from)).
		Str("to", string(destination)).
		Msg("player moved")

	s.Broadcast(protocol.PlayerMoved{
		PlayerID: client.ID,
		From:     from,
		To:       destination,
	})

	// Occupants of both rooms see the change reflected in their view.
	s.Clients.ForEach(func(c *Client) {
		if c.Location == from || c.Location == destination {
			s.sendStateUpdate(c)
		}
	})
}

func (s *Server) handleKill(client *Client, targetID game.PlayerID) {
	target := s.Clients.GetClientByID(targetID)
	if client.Role != role.Impostor ||
		!client.Alive ||
		target == nil ||
		target == client ||
		!target.Alive ||
		target.Location != client.Location {
		_ = client.Error("Invalid kill attempt.")
		return
	}

	target.Alive = false
	s.Bodies[target.ID] = target.Location
	s.interruptTask(target, "death")

	log.Info().
		Str("killer", string(client.ID)).
		Str("victim", string(target.ID)).
		Str("room", string(target.Location)).
		Msg("player killed")

	s.Broadcast(protocol.PlayerKilled{
		Killer:   client.ID,
		Victim:   target.ID,
		Location: target.Location,
	})

	s.sendStateUpdate(target)
}

func (s *Server) handleReport(client *Client) {
	if !client.Alive || s.Phase != phase.FreeRoam {
		_ = client.Error("No bodies to report here.")
		return
	}

	found := false
	for id, room := range s.Bodies {
		if room == client.Location {
			delete(s.Bodies, id)
			found = true
		}
	}
	if !found {
		_ = client.Error("No bodies to report here.")
		return
	}

	log.Info().
		Str("player", string(client.ID)).
		Str("room", string(client.Location)).
		Msg("body reported")

	s.startDiscussion()
}

func (s *Server) handleCallMeeting(client *Client) {
	if !client.Alive || s.Phase != phase.FreeRoam {
		_ = client.Error("Cannot call a meeting now.")
		return
	}
	if client.EmergencyMeetingsLeft <= 0 {
		_ = client.Error("No emergency meetings left.")
		return
	}

	client.EmergencyMeetingsLeft--

	log.Info().
		Str("player", string(client.ID)).
		Int("left", client.EmergencyMeetingsLeft).
		Msg("emergency meeting called")

	s.Broadcast(protocol.EmergencyMeetingCalled{PlayerID: client.ID})
	s.startDiscussion()
}

func (s *Server) handleVote(client *Client, vote game.PlayerID) {
	if s.Phase != phase.Voting || !client.Alive {
		_ = client.Error("Cannot vote now.")
		return
	}
	if _, voted := s.Votes[client.ID]; voted {
		_ = client.Error("You have already voted.")
		return
	}
	if vote != game.VoteSkip && s.Clients.GetClientByID(vote) == nil {
		_ = client.Error("Invalid vote target.")
		return
	}

	s.Votes[client.ID] = vote
	_ = client.Send(protocol.VoteReceived{})

	log.Debug().Str("player", string(client.ID)).Msg("vote recorded")

	// Everyone still breathing has voted; no point waiting out the timer.
	if len(s.Votes) >= s.numAlive() {
		s.finishVoting()
	}
}

func (s *Server) handleChat(client *Client, message string) {
	if s.Phase != phase.Discussion {
		_ = client.Error("Cannot chat now.")
		return
	}

	if client.Alive {
		s.Broadcast(protocol.ChatMessage{
			PlayerID: client.ID,
			Message:  message,
		})
		return
	}

	// Ghosts only ever talk to each other.
	s.BroadcastDead(protocol.ChatMessage{
		PlayerID: client.ID,
		Message:  "[GHOST] " + message,
	})
}

func (s *Server) handleTaskStart(client *Client, name string) {
	if !client.Alive || s.Phase != phase.FreeRoam || client.Role != role.Crewmate {
		_ = client.Error("Cannot start a task now.")
		return
	}
	if client.ActiveTask != nil {
		_ = client.Error("You are already doing a task.")
		return
	}

	task := s.findTask(client.ID, name)
	if task == nil || task.Room != client.Location {
		_ = client.Error("No such task here.")
		return
	}

	if err := task.Start(); err != nil {
		_ = client.Error("Cannot start a task now.")
		return
	}

	client.ActiveTask = task
	client.MovementLocked = true

	log.Info().
		Str("player", string(client.ID)).
		Str("task", task.Name).
		Msg("task started")

	_ = client.Send(protocol.TaskStarted{
		Task:  task.Name,
		Room:  task.Room,
		Turns: task.TurnsRemaining,
	})

	s.Broadcast(protocol.TaskProgress{
		PlayerID: client.ID,
		Task:     task.Name,
		Status:   "started",
		Progress: s.taskProgress(),
	})
}
