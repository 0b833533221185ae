package config

import (
	"time"

	"github.com/cfoust/skeld/pkg/gameserver"
)

// GameSettings holds the tunables for a session. Durations are expressed in
// seconds; they are converted when the engine config is built.
type GameSettings struct {
	MinPlayers          int
	ImpostorRatio       float64
	EmergencyMeetings   int
	DiscussionSeconds   int
	VotingSeconds       int
	TaskTickSeconds     int
	TasksPerPlayer      int
	LockJoinsAfterStart bool
}

type ServerIngress struct {
	Web struct {
		Port int
	}
}

type ServerSettings struct {
	ServerDescription string
	Game              GameSettings
	Ingress           ServerIngress
}

type Config struct {
	Server ServerSettings
}

// Engine builds the engine's own view of the configuration.
func (s *ServerSettings) Engine() *gameserver.Config {
	game := s.Game
	return &gameserver.Config{
		Description:         s.ServerDescription,
		MinPlayers:          game.MinPlayers,
		ImpostorRatio:       game.ImpostorRatio,
		EmergencyMeetings:   game.EmergencyMeetings,
		DiscussionDuration:  time.Duration(game.DiscussionSeconds) * time.Second,
		VotingDuration:      time.Duration(game.VotingSeconds) * time.Second,
		TaskTickInterval:    time.Duration(game.TaskTickSeconds) * time.Second,
		TasksPerPlayer:      game.TasksPerPlayer,
		LockJoinsAfterStart: game.LockJoinsAfterStart,
	}
}
