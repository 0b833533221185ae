package protocol

import (
	"encoding/json"
	"testing"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/gamemap"

	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	action, err := DecodeAction([]byte(`{"action": "move", "destination": "medbay"}`))
	require.NoError(t, err)
	move, ok := action.(*Move)
	require.True(t, ok)
	require.Equal(t, gamemap.Medbay, move.Destination)

	action, err = DecodeAction([]byte(`{"action": "kill", "target": "Bob"}`))
	require.NoError(t, err)
	kill, ok := action.(*Kill)
	require.True(t, ok)
	require.Equal(t, game.PlayerID("Bob"), kill.Target)

	action, err = DecodeAction([]byte(`{"action": "vote", "vote": "skip"}`))
	require.NoError(t, err)
	vote, ok := action.(*Vote)
	require.True(t, ok)
	require.Equal(t, game.VoteSkip, vote.Vote)

	action, err = DecodeAction([]byte(`{"action": "report"}`))
	require.NoError(t, err)
	require.IsType(t, &Report{}, action)
}

func TestDecodeActionErrors(t *testing.T) {
	_, err := DecodeAction([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeAction([]byte(`{"action": "teleport"}`))
	require.Error(t, err)

	_, err = DecodeAction([]byte(`{}`))
	require.Error(t, err)
}

func TestEncode(t *testing.T) {
	data, err := Encode(PlayerKilled{
		Killer:   "Alice",
		Victim:   "Bob",
		Location: gamemap.Electrical,
	})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "player_killed", fields["type"])
	require.Equal(t, "Alice", fields["killer"])
	require.Equal(t, "Bob", fields["victim"])
	require.Equal(t, "electrical", fields["location"])
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(VoteReceived{})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, "vote_received", fields["type"])
}
