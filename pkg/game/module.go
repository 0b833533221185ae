package game

import (
	"github.com/cfoust/skeld/pkg/game/role"
	"github.com/cfoust/skeld/pkg/gamemap"
)

// PlayerID is the stable identity of a player for the lifetime of their
// connection. Ids are drawn from a fixed pool of crew names.
type PlayerID string

// Describes a player.
type Player struct {
	ID       PlayerID
	Location gamemap.Room
	Role     role.ID
	Alive    bool

	EmergencyMeetingsLeft int

	// The task the player is currently working on, nil outside of one.
	// MovementLocked is true exactly while ActiveTask is in progress.
	ActiveTask     *Task
	MovementLocked bool
}

func NewPlayer(id PlayerID, meetings int) *Player {
	return &Player{
		ID:                    id,
		Location:              gamemap.Spawn(),
		Role:                  role.Crewmate,
		Alive:                 true,
		EmergencyMeetingsLeft: meetings,
	}
}

func (p *Player) Status() string {
	if p.Alive {
		return "alive"
	}
	return "dead"
}
