package gameserver

import (
	"errors"

	"github.com/cfoust/skeld/pkg/game"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// The identity pool. A connection claims the first free name and holds it
// until it disconnects; the pool size bounds the number of players.
var playerNames = []game.PlayerID{
	"Alice", "Bob", "Charlie", "Dave", "Eve", "Mallory", "Trent",
	"Frank", "Grace", "Henry", "Ivy", "Jack", "Kelly", "Luna",
	"Max", "Nina", "Oscar", "Penny", "Quinn", "Ruby", "Sam",
}

var (
	ErrServerFull     = errors.New("server is full")
	ErrGameInProgress = errors.New("game in progress")
)

type ClientManager struct {
	mutex   deadlock.RWMutex
	clients map[game.PlayerID]*Client
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[game.PlayerID]*Client),
	}
}

// Add claims an identity for the connection. It fails with ErrServerFull
// when the pool is exhausted.
func (cm *ClientManager) Add(sessionID uuid.UUID, conn Connection, meetings int) (*Client, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for _, name := range playerNames {
		if _, taken := cm.clients[name]; taken {
			continue
		}

		client := NewClient(*game.NewPlayer(name, meetings), sessionID, conn)
		cm.clients[name] = client
		return client, nil
	}

	return nil, ErrServerFull
}

func (cm *ClientManager) Remove(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.clients[client.ID] == client {
		delete(cm.clients, client.ID)
	}
}

func (cm *ClientManager) GetClientByID(id game.PlayerID) *Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.clients[id]
}

func (cm *ClientManager) GetClientBySession(sessionID uuid.UUID) *Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, client := range cm.clients {
		if client.SessionID == sessionID {
			return client
		}
	}
	return nil
}

func (cm *ClientManager) GetNumClients() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.clients)
}

// ForEach visits clients in identity pool order so that fan-out is
// deterministic.
func (cm *ClientManager) ForEach(fn func(c *Client)) {
	cm.mutex.RLock()
	clients := make([]*Client, 0, len(cm.clients))
	for _, name := range playerNames {
		if client, ok := cm.clients[name]; ok {
			clients = append(clients, client)
		}
	}
	cm.mutex.RUnlock()

	for _, client := range clients {
		fn(client)
	}
}
