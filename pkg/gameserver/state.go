package gameserver

import (
	"time"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/game/phase"
	"github.com/cfoust/skeld/pkg/gamemap"
)

type State struct {
	Phase       phase.ID
	GameStarted bool

	// Where each unreported victim lies. An entry is created on a kill and
	// removed when the room is reported.
	Bodies map[game.PlayerID]gamemap.Room

	// Ballots for the current voting phase only.
	Votes map[game.PlayerID]game.PlayerID

	UpSince time.Time
}

func NewState() *State {
	return &State{
		Phase:   phase.FreeRoam,
		Bodies:  make(map[game.PlayerID]gamemap.Room),
		Votes:   make(map[game.PlayerID]game.PlayerID),
		UpSince: time.Now(),
	}
}
