package gameserver

import (
	"errors"
	"fmt"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/google/uuid"
)

// ErrConnectionClosed is the explicit result of sending to a peer that is
// gone. The broadcast pass consumes it instead of an exception bubbling out
// of the transport.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is the outbound half of the transport collaborator. Send must
// never block the caller; implementations buffer and, when the buffer fills,
// drop the peer rather than stall the engine.
type Connection interface {
	Send(message protocol.Message) error
	Close(reason string)
}

// Describes a connected player.
type Client struct {
	game.Player

	SessionID uuid.UUID

	conn   Connection
	server *Server
}

func NewClient(player game.Player, sessionID uuid.UUID, conn Connection) *Client {
	return &Client{
		Player:    player,
		SessionID: sessionID,
		conn:      conn,
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("%s (%s)", c.ID, c.SessionID)
}

func (c *Client) Send(messages ...protocol.Message) error {
	for _, message := range messages {
		if err := c.conn.Send(message); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Error(message string) error {
	return c.Send(protocol.Error{Message: message})
}
