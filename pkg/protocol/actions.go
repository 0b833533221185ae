package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/gamemap"
)

// Action is one of the closed set of things a client can ask the server to
// do. The engine dispatches on the concrete type; there is no dynamic
// handler registration.
type Action interface {
	Action() ActionCode
}

type ActionCode string

const (
	ActionMove        ActionCode = "move"
	ActionKill        ActionCode = "kill"
	ActionReport      ActionCode = "report"
	ActionVote        ActionCode = "vote"
	ActionCallMeeting ActionCode = "call_meeting"
	ActionChat        ActionCode = "chat"
	ActionTaskStart   ActionCode = "task_start"
)

type Move struct {
	Destination gamemap.Room `json:"destination"`
}

func (a Move) Action() ActionCode { return ActionMove }

type Kill struct {
	Target game.PlayerID `json:"target"`
}

func (a Kill) Action() ActionCode { return ActionKill }

type Report struct{}

func (a Report) Action() ActionCode { return ActionReport }

type Vote struct {
	// Either a player id or game.VoteSkip.
	Vote game.PlayerID `json:"vote"`
}

func (a Vote) Action() ActionCode { return ActionVote }

type CallMeeting struct{}

func (a CallMeeting) Action() ActionCode { return ActionCallMeeting }

type Chat struct {
	Message string `json:"message"`
}

func (a Chat) Action() ActionCode { return ActionChat }

type TaskStart struct {
	Task string `json:"task"`
}

func (a TaskStart) Action() ActionCode { return ActionTaskStart }

// DecodeAction parses an inbound payload into one of the Action types.
// Anything unrecognized is a protocol error; the payload is never partially
// applied.
func DecodeAction(data []byte) (Action, error) {
	var envelope struct {
		Action ActionCode `json:"action"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}

	decode := func(action Action) (Action, error) {
		err := json.Unmarshal(data, action)
		if err != nil {
			return nil, fmt.Errorf("invalid %s action: %w", envelope.Action, err)
		}
		return action, nil
	}

	switch envelope.Action {
	case ActionMove:
		return decode(&Move{})
	case ActionKill:
		return decode(&Kill{})
	case ActionReport:
		return decode(&Report{})
	case ActionVote:
		return decode(&Vote{})
	case ActionCallMeeting:
		return decode(&CallMeeting{})
	case ActionChat:
		return decode(&Chat{})
	case ActionTaskStart:
		return decode(&TaskStart{})
	}

	return nil, fmt.Errorf("unknown action %q", envelope.Action)
}
