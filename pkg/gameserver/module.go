package gameserver

import (
	"context"
	"math/rand"
	"time"

	"github.com/cfoust/skeld/pkg/chanlock"
	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/game/phase"
	"github.com/cfoust/skeld/pkg/gamemap"
	"github.com/cfoust/skeld/pkg/protocol"
	"github.com/cfoust/skeld/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// The closed set of things the engine loop can be asked to do. Connections,
// timers and the status endpoint all talk to the engine through these; no
// other goroutine ever touches game state.
type event interface {
	mark() string
}

type joinRequest struct {
	sessionID uuid.UUID
	conn      Connection
	result    chan joinResult
}

func (joinRequest) mark() string { return "join" }

type joinResult struct {
	client *Client
	err    error
}

type leaveEvent struct {
	client *Client
}

func (leaveEvent) mark() string { return "leave" }

type actionEvent struct {
	client *Client
	action protocol.Action
}

func (actionEvent) mark() string { return "action" }

type phaseExpiry struct {
	seq uint64
	to  phase.ID
}

func (phaseExpiry) mark() string { return "phase" }

type statusRequest struct {
	result chan Status
}

func (statusRequest) mark() string { return "status" }

// Status is a read-only snapshot of the session, served over HTTP.
type Status struct {
	Phase            string  `json:"phase"`
	PhaseSecondsLeft float64 `json:"phase_seconds_left"`
	GameStarted      bool    `json:"game_started"`
	GameOver         bool    `json:"game_over"`
	NumPlayers       int     `json:"num_players"`
	TaskProgress     float64 `json:"task_progress"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

type Server struct {
	utils.Session

	*Config
	*State

	Clients *ClientManager

	// Every message that goes out over a broadcast is also published
	// here for observers (the session journal, tests).
	Broadcasts *utils.Topic[protocol.Message]

	scheduler *scheduler
	tasks     map[game.PlayerID][]*game.Task
	events    chan event
	rng       *rand.Rand
	gameOver  bool
}

func New(ctx context.Context, conf *Config) *Server {
	events := make(chan event, 256)

	return &Server{
		Session:    utils.NewSession(ctx),
		Config:     conf,
		State:      NewState(),
		Clients:    NewClientManager(),
		Broadcasts: utils.NewTopic[protocol.Message](),
		scheduler:  newScheduler(events),
		tasks:      make(map[game.PlayerID][]*game.Task),
		events:     events,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Poll runs the engine: one goroutine, one event at a time. The phase timer
// and the task ticker feed the same queue as the connections, so a kill and
// a report against the same body can never race.
func (s *Server) Poll(ctx context.Context) {
	watchdog := chanlock.New(log.With().Str("service", "engine").Logger())
	health := watchdog.Poll(ctx)

	ticker := time.NewTicker(s.TaskTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.Ctx().Done():
			return
		case <-health:
			continue
		case <-ticker.C:
			watchdog.Mark("tick")
			s.handleTaskTick()
		case ev := <-s.events:
			watchdog.Mark(ev.mark())
			switch e := ev.(type) {
			case joinRequest:
				client, err := s.handleJoin(e.sessionID, e.conn)
				e.result <- joinResult{client: client, err: err}
			case leaveEvent:
				s.handleLeave(e.client)
			case actionEvent:
				s.handleAction(e.client, e.action)
			case phaseExpiry:
				s.handlePhaseExpiry(e)
			case statusRequest:
				e.result <- s.status()
			}
		}
	}
}

// Connect registers a new connection with the engine and blocks until the
// engine has admitted or refused it.
func (s *Server) Connect(ctx context.Context, sessionID uuid.UUID, conn Connection) (*Client, error) {
	request := joinRequest{
		sessionID: sessionID,
		conn:      conn,
		result:    make(chan joinResult, 1),
	}

	select {
	case s.events <- request:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-request.result:
		return result.client, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Leave tells the engine the connection is gone. Safe to call more than
// once for the same client, and after the session has ended.
func (s *Server) Leave(client *Client) {
	select {
	case s.events <- leaveEvent{client: client}:
	case <-s.Ctx().Done():
	}
}

// Submit queues an inbound action for the engine.
func (s *Server) Submit(client *Client, action protocol.Action) {
	select {
	case s.events <- actionEvent{client: client, action: action}:
	case <-s.Ctx().Done():
	}
}

// GetStatus asks the engine for a snapshot of the session.
func (s *Server) GetStatus(ctx context.Context) (Status, error) {
	request := statusRequest{result: make(chan Status, 1)}

	select {
	case s.events <- request:
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}

	select {
	case status := <-request.result:
		return status, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (s *Server) status() Status {
	return Status{
		Phase:            s.Phase.String(),
		PhaseSecondsLeft: s.scheduler.TimeLeft().Seconds(),
		GameStarted:      s.GameStarted,
		GameOver:         s.gameOver,
		NumPlayers:       s.Clients.GetNumClients(),
		TaskProgress:     s.taskProgress(),
		UptimeSeconds:    time.Since(s.UpSince).Seconds(),
	}
}

func (s *Server) handleJoin(sessionID uuid.UUID, conn Connection) (*Client, error) {
	if s.LockJoinsAfterStart && s.GameStarted {
		_ = conn.Send(protocol.Error{Message: "Game already in progress. Please wait."})
		conn.Close("game in progress")
		return nil, ErrGameInProgress
	}

	client, err := s.Clients.Add(sessionID, conn, s.EmergencyMeetings)
	if err != nil {
		_ = conn.Send(protocol.Error{Message: "Server is full"})
		conn.Close("server full")
		return nil, err
	}
	client.server = s

	log.Info().
		Str("player", string(client.ID)).
		Str("session", sessionID.String()).
		Msg("player connected")

	_ = client.Send(protocol.Welcome{PlayerID: client.ID})

	s.Broadcast(protocol.PlayerConnected{
		PlayerID: client.ID,
		Location: client.Location,
	})

	s.maybeStartGame()

	s.sendStateUpdate(client)

	return client, nil
}

func (s *Server) handleLeave(client *Client) {
	if s.Clients.GetClientByID(client.ID) != client {
		// already removed, e.g. by a failed broadcast
		return
	}

	s.interruptTask(client, "disconnect")
	s.Clients.Remove(client)
	delete(s.tasks, client.ID)
	client.conn.Close("")

	log.Info().Str("player", string(client.ID)).Msg("player disconnected")

	s.Broadcast(protocol.PlayerDisconnected{PlayerID: client.ID})

	// The departed player's tasks left with them, which can push the
	// remaining crew over the line.
	s.checkCrewVictory()
}

// Role assignment fires exactly once per session, the first time the roster
// reaches MinPlayers.
func (s *Server) maybeStartGame() {
	if s.GameStarted || s.Clients.GetNumClients() < s.MinPlayers {
		return
	}

	ids := make([]game.PlayerID, 0, s.Clients.GetNumClients())
	s.Clients.ForEach(func(c *Client) {
		ids = append(ids, c.ID)
	})

	roles := game.AssignRoles(ids, s.ImpostorRatio, s.rng)
	s.Clients.ForEach(func(c *Client) {
		c.Role = roles[c.ID]
	})

	s.assignTasks()
	s.GameStarted = true

	log.Info().
		Int("players", len(ids)).
		Int("impostors", game.ImpostorCount(len(ids), s.ImpostorRatio)).
		Msg("game started")

	s.Broadcast(protocol.GameStarted{NumPlayers: len(ids)})

	s.Clients.ForEach(func(c *Client) {
		s.sendStateUpdate(c)
	})
}

// startDiscussion is the single entry into the Discussion phase, reached
// from a report or an emergency meeting.
func (s *Server) startDiscussion() {
	s.Phase = phase.Discussion
	clear(s.Votes)

	s.Clients.ForEach(func(c *Client) {
		s.interruptTask(c, "discussion")
	})

	duration := s.DiscussionDuration
	log.Info().Dur("duration", duration).Msg("discussion phase started")

	s.Broadcast(protocol.PhaseChange{
		Phase:    phase.Discussion.String(),
		Duration: int(duration / time.Second),
	})
	s.Clients.ForEach(func(c *Client) {
		s.sendStateUpdate(c)
	})

	s.scheduler.Schedule(duration, phase.Voting)
}

func (s *Server) startVoting() {
	s.Phase = phase.Voting

	duration := s.VotingDuration
	log.Info().Dur("duration", duration).Msg("voting phase started")

	s.Broadcast(protocol.PhaseChange{
		Phase:    phase.Voting.String(),
		Duration: int(duration / time.Second),
	})

	s.scheduler.Schedule(duration, phase.FreeRoam)
}

func (s *Server) handlePhaseExpiry(e phaseExpiry) {
	if s.scheduler.Stale(e) {
		return
	}

	switch {
	case e.to == phase.Voting && s.Phase == phase.Discussion:
		s.startVoting()
	case e.to == phase.FreeRoam && s.Phase == phase.Voting:
		s.finishVoting()
	}
}

// finishVoting tallies the ballots, applies any ejection and returns the
// session to free roam.
func (s *Server) finishVoting() {
	s.scheduler.Cancel()

	result := game.TallyVotes(s.Votes)
	clear(s.Votes)

	ejected := s.Clients.GetClientByID(result.Ejected)
	if result.Ejected != "" && ejected != nil {
		ejected.Alive = false
		s.interruptTask(ejected, "ejection")

		log.Info().
			Str("player", string(ejected.ID)).
			Str("role", ejected.Role.String()).
			Msg("player ejected")

		s.Broadcast(protocol.PlayerEjected{
			PlayerID: ejected.ID,
			Role:     ejected.Role.String(),
		})
	} else {
		reason := result.Reason
		if reason == "" {
			// the winner disconnected before the tally
			reason = "No one was ejected."
		}
		s.Broadcast(protocol.NoEjection{Message: reason})
	}

	s.Phase = phase.FreeRoam
	s.Broadcast(protocol.PhaseChange{Phase: phase.FreeRoam.String()})
}

func (s *Server) numAlive() int {
	count := 0
	s.Clients.ForEach(func(c *Client) {
		if c.Alive {
			count++
		}
	})
	return count
}

// sendStateUpdate gives the player their personal view of the session.
func (s *Server) sendStateUpdate(client *Client) {
	location := client.Location

	playersInRoom := make([]game.PlayerID, 0, 4)
	alivePlayers := make([]game.PlayerID, 0, s.Clients.GetNumClients())
	s.Clients.ForEach(func(c *Client) {
		if c.Location == location {
			playersInRoom = append(playersInRoom, c.ID)
		}
		if c.Alive {
			alivePlayers = append(alivePlayers, c.ID)
		}
	})

	bodiesInRoom := make([]game.PlayerID, 0, 1)
	for id, room := range s.Bodies {
		if room == location {
			bodiesInRoom = append(bodiesInRoom, id)
		}
	}

	_ = client.Send(protocol.StateUpdate{
		Location:              location,
		PlayersInRoom:         playersInRoom,
		AvailableExits:        gamemap.Adjacent(location),
		Role:                  client.Role.String(),
		Status:                client.Status(),
		BodiesInRoom:          bodiesInRoom,
		AlivePlayers:          alivePlayers,
		EmergencyMeetingsLeft: client.EmergencyMeetingsLeft,
	})
}
