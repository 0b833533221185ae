package protocol

import (
	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/gamemap"
)

// Message is anything the server can put on the wire. The type tag is
// injected when the message is encoded.
type Message interface {
	Type() MessageCode
}

type MessageCode string

const (
	WelcomeMsg                MessageCode = "welcome"
	PlayerConnectedMsg        MessageCode = "player_connected"
	PlayerDisconnectedMsg     MessageCode = "player_disconnected"
	GameStartedMsg            MessageCode = "game_started"
	StateUpdateMsg            MessageCode = "state_update"
	PlayerMovedMsg            MessageCode = "player_moved"
	PlayerKilledMsg           MessageCode = "player_killed"
	PhaseChangeMsg            MessageCode = "phase_change"
	EmergencyMeetingCalledMsg MessageCode = "emergency_meeting_called"
	ChatMessageMsg            MessageCode = "chat_message"
	VoteReceivedMsg           MessageCode = "vote_received"
	PlayerEjectedMsg          MessageCode = "player_ejected"
	NoEjectionMsg             MessageCode = "no_ejection"
	TaskStartedMsg            MessageCode = "task_started"
	TaskProgressMsg           MessageCode = "task_progress"
	TaskCompleteMsg           MessageCode = "task_complete"
	TaskInterruptedMsg        MessageCode = "task_interrupted"
	CrewVictoryMsg            MessageCode = "crew_victory"
	ErrorMsg                  MessageCode = "error"
)

type Welcome struct {
	PlayerID game.PlayerID `json:"player_id"`
}

func (m Welcome) Type() MessageCode { return WelcomeMsg }

type PlayerConnected struct {
	PlayerID game.PlayerID `json:"player_id"`
	Location gamemap.Room  `json:"location"`
}

func (m PlayerConnected) Type() MessageCode { return PlayerConnectedMsg }

type PlayerDisconnected struct {
	PlayerID game.PlayerID `json:"player_id"`
}

func (m PlayerDisconnected) Type() MessageCode { return PlayerDisconnectedMsg }

type GameStarted struct {
	NumPlayers int `json:"num_players"`
}

func (m GameStarted) Type() MessageCode { return GameStartedMsg }

type StateUpdate struct {
	Location              gamemap.Room    `json:"location"`
	PlayersInRoom         []game.PlayerID `json:"players_in_room"`
	AvailableExits        []gamemap.Room  `json:"available_exits"`
	Role                  string          `json:"role"`
	Status                string          `json:"status"`
	BodiesInRoom          []game.PlayerID `json:"bodies_in_room"`
	AlivePlayers          []game.PlayerID `json:"alive_players"`
	EmergencyMeetingsLeft int             `json:"emergency_meetings_left"`
}

func (m StateUpdate) Type() MessageCode { return StateUpdateMsg }

type PlayerMoved struct {
	PlayerID game.PlayerID `json:"player_id"`
	From     gamemap.Room  `json:"from"`
	To       gamemap.Room  `json:"to"`
}

func (m PlayerMoved) Type() MessageCode { return PlayerMovedMsg }

type PlayerKilled struct {
	Killer   game.PlayerID `json:"killer"`
	Victim   game.PlayerID `json:"victim"`
	Location gamemap.Room  `json:"location"`
}

func (m PlayerKilled) Type() MessageCode { return PlayerKilledMsg }

type PhaseChange struct {
	Phase string `json:"phase"`
	// Seconds until the phase ends on its own; zero for free roam.
	Duration int `json:"duration,omitempty"`
}

func (m PhaseChange) Type() MessageCode { return PhaseChangeMsg }

type EmergencyMeetingCalled struct {
	PlayerID game.PlayerID `json:"player_id"`
}

func (m EmergencyMeetingCalled) Type() MessageCode { return EmergencyMeetingCalledMsg }

type ChatMessage struct {
	PlayerID game.PlayerID `json:"player_id"`
	Message  string        `json:"message"`
}

func (m ChatMessage) Type() MessageCode { return ChatMessageMsg }

type VoteReceived struct{}

func (m VoteReceived) Type() MessageCode { return VoteReceivedMsg }

type PlayerEjected struct {
	PlayerID game.PlayerID `json:"player_id"`
	Role     string        `json:"role"`
}

func (m PlayerEjected) Type() MessageCode { return PlayerEjectedMsg }

type NoEjection struct {
	Message string `json:"message"`
}

func (m NoEjection) Type() MessageCode { return NoEjectionMsg }

type TaskStarted struct {
	Task  string       `json:"task"`
	Room  gamemap.Room `json:"room"`
	Turns int          `json:"turns"`
}

func (m TaskStarted) Type() MessageCode { return TaskStartedMsg }

type TaskProgress struct {
	PlayerID game.PlayerID `json:"player_id"`
	Task     string        `json:"task"`
	Status   string        `json:"status"`
	// Fraction of all crew tasks completed so far.
	Progress float64 `json:"progress"`
}

func (m TaskProgress) Type() MessageCode { return TaskProgressMsg }

type TaskComplete struct {
	Task string `json:"task"`
}

func (m TaskComplete) Type() MessageCode { return TaskCompleteMsg }

type TaskInterrupted struct {
	Task   string `json:"task"`
	Reason string `json:"reason"`
}

func (m TaskInterrupted) Type() MessageCode { return TaskInterruptedMsg }

type CrewVictory struct {
	Message string `json:"message"`
}

func (m CrewVictory) Type() MessageCode { return CrewVictoryMsg }

type Error struct {
	Message string `json:"message"`
}

func (m Error) Type() MessageCode { return ErrorMsg }
