package gameserver

import (
	"github.com/cfoust/skeld/pkg/gamemap"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/rs/zerolog/log"
)

// The delivery pass never stops at a dead peer: failures are collected and
// turned into disconnects only after every reachable recipient has been
// served.
func (s *Server) broadcast(include func(c *Client) bool, messages ...protocol.Message) {
	var failed []*Client

	s.Clients.ForEach(func(c *Client) {
		if include != nil && !include(c) {
			return
		}
		if err := c.Send(messages...); err != nil {
			failed = append(failed, c)
		}
	})

	for _, message := range messages {
		s.Broadcasts.Publish(message)
	}

	for _, c := range failed {
		log.Warn().Str("player", string(c.ID)).Msg("peer lost during broadcast")
		s.handleLeave(c)
	}
}

// Broadcast sends to every connected player.
func (s *Server) Broadcast(messages ...protocol.Message) {
	s.broadcast(nil, messages...)
}

// BroadcastRoom sends to every player currently in the room.
func (s *Server) BroadcastRoom(room gamemap.Room, messages ...protocol.Message) {
	s.broadcast(func(c *Client) bool { return c.Location == room }, messages...)
}

// BroadcastAlive sends to living players only.
func (s *Server) BroadcastAlive(messages ...protocol.Message) {
	s.broadcast(func(c *Client) bool { return c.Alive }, messages...)
}

// BroadcastDead sends on the ghost channel: dead players only, never the
// living.
func (s *Server) BroadcastDead(messages ...protocol.Message) {
	s.broadcast(func(c *Client) bool { return !c.Alive }, messages...)
}
