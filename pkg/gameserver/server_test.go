package gameserver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cfoust/skeld/pkg/game"
	"github.com/cfoust/skeld/pkg/game/phase"
	"github.com/cfoust/skeld/pkg/game/role"
	"github.com/cfoust/skeld/pkg/gamemap"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []protocol.Message
	failing  bool
}

func (c *fakeConn) Send(message protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return ErrConnectionClosed
	}
	c.messages = append(c.messages, message)
	return nil
}

func (c *fakeConn) Close(reason string) {}

func (c *fakeConn) typed(code protocol.MessageCode) []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []protocol.Message
	for _, message := range c.messages {
		if message.Type() == code {
			result = append(result, message)
		}
	}
	return result
}

func (c *fakeConn) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

func testConfig() *Config {
	return &Config{
		Description:        "test",
		MinPlayers:         3,
		ImpostorRatio:      0.25,
		DiscussionDuration: time.Minute,
		VotingDuration:     time.Minute,
		TaskTickInterval:   time.Minute,
		EmergencyMeetings:  1,
		TasksPerPlayer:     2,
	}
}

func newTestServer(t *testing.T, conf *Config) *Server {
	t.Helper()
	server := New(context.Background(), conf)
	t.Cleanup(server.Cancel)
	return server
}

func join(t *testing.T, s *Server) (*Client, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	client, err := s.handleJoin(uuid.New(), conn)
	require.NoError(t, err)
	return client, conn
}

// forceRoles overrides the random assignment so a test can pick its
// impostor.
func forceRoles(s *Server, impostor game.PlayerID) {
	s.Clients.ForEach(func(c *Client) {
		if c.ID == impostor {
			c.Role = role.Impostor
		} else {
			c.Role = role.Crewmate
		}
	})
}

func TestJoin(t *testing.T) {
	s := newTestServer(t, testConfig())
	client, conn := join(t, s)

	require.Equal(t, game.PlayerID("Alice"), client.ID)
	require.Equal(t, gamemap.Spawn(), client.Location)
	require.True(t, client.Alive)

	welcomes := conn.typed(protocol.WelcomeMsg)
	require.Len(t, welcomes, 1)
	require.Equal(t, client.ID, welcomes[0].(protocol.Welcome).PlayerID)

	require.Len(t, conn.typed(protocol.StateUpdateMsg), 1)
	require.False(t, s.GameStarted)
}

func TestRoleAssignmentOnce(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, _ := join(t, s)
	c, _ := join(t, s)

	require.True(t, s.GameStarted)
	require.Len(t, connA.typed(protocol.GameStartedMsg), 1)

	impostors := 0
	for _, client := range []*Client{a, b, c} {
		if client.Role == role.Impostor {
			impostors++
		}
	}
	require.Equal(t, 1, impostors)

	before := []role.ID{a.Role, b.Role, c.Role}

	// a later join never reshuffles the roles
	d, _ := join(t, s)
	require.Equal(t, role.Crewmate, d.Role)
	require.Equal(t, before, []role.ID{a.Role, b.Role, c.Role})
	require.Len(t, connA.typed(protocol.GameStartedMsg), 1)
}

func TestServerFull(t *testing.T) {
	s := newTestServer(t, testConfig())
	for range playerNames {
		join(t, s)
	}

	conn := &fakeConn{}
	_, err := s.handleJoin(uuid.New(), conn)
	require.ErrorIs(t, err, ErrServerFull)
	require.Len(t, conn.typed(protocol.ErrorMsg), 1)
}

func TestLockJoinsAfterStart(t *testing.T) {
	conf := testConfig()
	conf.LockJoinsAfterStart = true
	s := newTestServer(t, conf)

	join(t, s)
	join(t, s)
	join(t, s)
	require.True(t, s.GameStarted)

	conn := &fakeConn{}
	_, err := s.handleJoin(uuid.New(), conn)
	require.ErrorIs(t, err, ErrGameInProgress)
}

func TestMove(t *testing.T) {
	s := newTestServer(t, testConfig())
	client, conn := join(t, s)
	conn.clear()

	s.handleAction(client, &protocol.Move{Destination: gamemap.Medbay})
	require.Equal(t, gamemap.Medbay, client.Location)
	require.Len(t, conn.typed(protocol.PlayerMovedMsg), 1)

	// not adjacent
	conn.clear()
	s.handleAction(client, &protocol.Move{Destination: gamemap.Reactor})
	require.Equal(t, gamemap.Medbay, client.Location)
	require.Len(t, conn.typed(protocol.ErrorMsg), 1)

	// the dead do not walk
	client.Alive = false
	conn.clear()
	s.handleAction(client, &protocol.Move{Destination: gamemap.Cafeteria})
	require.Equal(t, gamemap.Medbay, client.Location)
	require.Len(t, conn.typed(protocol.ErrorMsg), 1)
}

func TestMoveAndKillDuringMeeting(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, _ := join(t, s)
	c, connC := join(t, s)
	forceRoles(s, a.ID)

	// neither action is gated by phase, only by its own preconditions
	s.startDiscussion()

	connC.clear()
	s.handleAction(c, &protocol.Move{Destination: gamemap.Medbay})
	require.Equal(t, gamemap.Medbay, c.Location)
	require.Empty(t, connC.typed(protocol.ErrorMsg))
	require.Len(t, connC.typed(protocol.PlayerMovedMsg), 1)

	s.startVoting()

	s.handleAction(a, &protocol.Kill{Target: b.ID})
	require.False(t, b.Alive)
	require.Equal(t, b.Location, s.Bodies[b.ID])
	require.Len(t, connC.typed(protocol.PlayerKilledMsg), 1)
}

func TestKill(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, _ := join(t, s)
	c, _ := join(t, s)
	forceRoles(s, a.ID)

	// everyone spawns in the same room
	s.handleAction(a, &protocol.Kill{Target: b.ID})
	require.False(t, b.Alive)
	require.Equal(t, b.Location, s.Bodies[b.ID])
	require.Len(t, connA.typed(protocol.PlayerKilledMsg), 1)

	// crewmates cannot kill
	connA.clear()
	s.handleAction(c, &protocol.Kill{Target: a.ID})
	require.True(t, a.Alive)

	// dead targets stay dead exactly once
	s.handleAction(a, &protocol.Kill{Target: b.ID})
	require.Empty(t, connA.typed(protocol.PlayerKilledMsg))

	// different rooms
	c.Location = gamemap.Storage
	s.handleAction(a, &protocol.Kill{Target: c.ID})
	require.True(t, c.Alive)
}

func TestReport(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, _ := join(t, s)
	c, connC := join(t, s)
	forceRoles(s, a.ID)

	// nothing to report yet
	connC.clear()
	s.handleAction(c, &protocol.Report{})
	require.Len(t, connC.typed(protocol.ErrorMsg), 1)
	require.Equal(t, phase.FreeRoam, s.Phase)

	s.handleAction(a, &protocol.Kill{Target: b.ID})

	connC.clear()
	s.handleAction(c, &protocol.Report{})
	require.Empty(t, s.Bodies)
	require.Equal(t, phase.Discussion, s.Phase)
	require.Empty(t, s.Votes)
	require.Greater(t, s.scheduler.TimeLeft(), time.Duration(0))

	changes := connC.typed(protocol.PhaseChangeMsg)
	require.Len(t, changes, 1)
	require.Equal(t, "discussion", changes[0].(protocol.PhaseChange).Phase)
}

func TestEmergencyMeeting(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	join(t, s)
	join(t, s)

	connA.clear()
	s.handleAction(a, &protocol.CallMeeting{})
	require.Equal(t, phase.Discussion, s.Phase)
	require.Equal(t, 0, a.EmergencyMeetingsLeft)

	called := connA.typed(protocol.EmergencyMeetingCalledMsg)
	require.Len(t, called, 1)
	require.Equal(t, a.ID, called[0].(protocol.EmergencyMeetingCalled).PlayerID)

	// budget spent
	s.Phase = phase.FreeRoam
	connA.clear()
	s.handleAction(a, &protocol.CallMeeting{})
	require.Equal(t, phase.FreeRoam, s.Phase)
	require.Len(t, connA.typed(protocol.ErrorMsg), 1)
}

func TestVoting(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, _ := join(t, s)
	c, connC := join(t, s)
	forceRoles(s, a.ID)

	s.startDiscussion()
	s.startVoting()
	require.Equal(t, phase.Voting, s.Phase)

	// votes for ghosts of players that never existed are refused
	connA.clear()
	s.handleAction(a, &protocol.Vote{Vote: "Zelda"})
	require.Len(t, connA.typed(protocol.ErrorMsg), 1)

	connA.clear()
	s.handleAction(a, &protocol.Vote{Vote: b.ID})
	require.Len(t, connA.typed(protocol.VoteReceivedMsg), 1)

	// one ballot per player
	connA.clear()
	s.handleAction(a, &protocol.Vote{Vote: game.VoteSkip})
	require.Len(t, connA.typed(protocol.ErrorMsg), 1)
	require.Equal(t, b.ID, s.Votes[a.ID])

	s.handleAction(b, &protocol.Vote{Vote: b.ID})

	// the third ballot completes the count and ejects immediately
	connC.clear()
	s.handleAction(c, &protocol.Vote{Vote: b.ID})

	require.Equal(t, phase.FreeRoam, s.Phase)
	require.False(t, b.Alive)
	require.Empty(t, s.Votes)

	ejected := connC.typed(protocol.PlayerEjectedMsg)
	require.Len(t, ejected, 1)
	require.Equal(t, b.ID, ejected[0].(protocol.PlayerEjected).PlayerID)
	require.Equal(t, "Crewmate", ejected[0].(protocol.PlayerEjected).Role)
}

func TestVotingTie(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, _ := join(t, s)
	join(t, s)

	s.startDiscussion()
	s.startVoting()

	s.handleAction(a, &protocol.Vote{Vote: b.ID})
	s.handleAction(b, &protocol.Vote{Vote: a.ID})

	// timer runs out with one ballot missing
	s.handlePhaseExpiry(phaseExpiry{seq: s.scheduler.seq, to: phase.FreeRoam})

	require.Equal(t, phase.FreeRoam, s.Phase)
	require.True(t, a.Alive)
	require.True(t, b.Alive)
	require.Len(t, connA.typed(protocol.NoEjectionMsg), 1)
}

func TestDeadCannotVote(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, connB := join(t, s)
	join(t, s)
	forceRoles(s, a.ID)

	s.handleAction(a, &protocol.Kill{Target: b.ID})
	s.startDiscussion()
	s.startVoting()

	connB.clear()
	s.handleAction(b, &protocol.Vote{Vote: a.ID})
	require.Len(t, connB.typed(protocol.ErrorMsg), 1)
	require.Empty(t, s.Votes)
}

func TestGhostChat(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, connB := join(t, s)
	c, connC := join(t, s)
	forceRoles(s, a.ID)

	s.handleAction(a, &protocol.Kill{Target: b.ID})
	s.handleAction(a, &protocol.Kill{Target: c.ID})
	s.startDiscussion()

	connA.clear()
	connB.clear()
	connC.clear()

	s.handleAction(b, &protocol.Chat{Message: "it was Alice"})

	// the living never hear a ghost
	require.Empty(t, connA.typed(protocol.ChatMessageMsg))

	for _, conn := range []*fakeConn{connB, connC} {
		chats := conn.typed(protocol.ChatMessageMsg)
		require.Len(t, chats, 1)
		require.Equal(t, "[GHOST] it was Alice", chats[0].(protocol.ChatMessage).Message)
	}

	// a living player's chat reaches everyone
	connA.clear()
	connB.clear()
	s.handleAction(a, &protocol.Chat{Message: "was not"})
	require.Len(t, connA.typed(protocol.ChatMessageMsg), 1)
	require.Len(t, connB.typed(protocol.ChatMessageMsg), 1)
}

func TestChatOutsideDiscussion(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)

	connA.clear()
	s.handleAction(a, &protocol.Chat{Message: "anybody home?"})
	require.Len(t, connA.typed(protocol.ErrorMsg), 1)
	require.Empty(t, connA.typed(protocol.ChatMessageMsg))
}

func TestBroadcastResilience(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, connA := join(t, s)
	b, connB := join(t, s)
	_, connC := join(t, s)

	connB.failing = true
	connA.clear()
	connC.clear()

	s.Broadcast(protocol.ChatMessage{PlayerID: a.ID, Message: "hello"})

	// the dead peer took nothing down with it
	require.Len(t, connA.typed(protocol.ChatMessageMsg), 1)
	require.Len(t, connC.typed(protocol.ChatMessageMsg), 1)

	// and was removed from the roster
	require.Nil(t, s.Clients.GetClientByID(b.ID))
	require.Len(t, connA.typed(protocol.PlayerDisconnectedMsg), 1)
}

func TestStaleTimer(t *testing.T) {
	s := newTestServer(t, testConfig())
	join(t, s)
	join(t, s)
	join(t, s)

	s.startDiscussion()
	stale := phaseExpiry{seq: s.scheduler.seq, to: phase.Voting}

	// a second meeting re-arms the slot; the old expiry must do nothing
	s.startDiscussion()
	require.True(t, s.scheduler.Stale(stale))

	s.handlePhaseExpiry(stale)
	require.Equal(t, phase.Discussion, s.Phase)

	s.handlePhaseExpiry(phaseExpiry{seq: s.scheduler.seq, to: phase.Voting})
	require.Equal(t, phase.Voting, s.Phase)
}

func TestTasks(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, connB := join(t, s)
	join(t, s)
	forceRoles(s, a.ID)

	task := game.NewTask("fix wiring", gamemap.Electrical, 2)
	s.tasks = map[game.PlayerID][]*game.Task{
		b.ID: {task},
	}

	// wrong room
	connB.clear()
	s.handleAction(b, &protocol.TaskStart{Task: "fix wiring"})
	require.Len(t, connB.typed(protocol.ErrorMsg), 1)

	b.Location = gamemap.Electrical
	connB.clear()
	s.handleAction(b, &protocol.TaskStart{Task: "fix wiring"})
	require.Len(t, connB.typed(protocol.TaskStartedMsg), 1)
	require.True(t, b.MovementLocked)
	require.Equal(t, task, b.ActiveTask)

	// working players stay put
	connB.clear()
	s.handleAction(b, &protocol.Move{Destination: gamemap.Security})
	require.Equal(t, gamemap.Electrical, b.Location)
	require.Len(t, connB.typed(protocol.ErrorMsg), 1)

	s.handleTaskTick()
	require.Equal(t, 1, task.TurnsRemaining)

	connB.clear()
	s.handleTaskTick()
	require.True(t, task.Completed())
	require.False(t, b.MovementLocked)
	require.Nil(t, b.ActiveTask)
	require.Len(t, connB.typed(protocol.TaskCompleteMsg), 1)

	// all crew tasks done: the crew wins, exactly once
	victories := connB.typed(protocol.CrewVictoryMsg)
	require.Len(t, victories, 1)
	require.True(t, s.gameOver)

	s.handleTaskTick()
	require.Len(t, connB.typed(protocol.CrewVictoryMsg), 1)
}

func TestTaskInterruptedByDiscussion(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, connB := join(t, s)
	join(t, s)
	forceRoles(s, a.ID)

	task := game.NewTask("review footage", gamemap.Security, 2)
	s.tasks = map[game.PlayerID][]*game.Task{
		b.ID: {task},
	}
	b.Location = gamemap.Security
	s.handleAction(b, &protocol.TaskStart{Task: "review footage"})
	s.handleTaskTick()

	connB.clear()
	s.handleAction(a, &protocol.CallMeeting{})

	require.Nil(t, b.ActiveTask)
	require.False(t, b.MovementLocked)
	require.Equal(t, 2, task.TurnsRemaining)
	require.Len(t, connB.typed(protocol.TaskInterruptedMsg), 1)
}

func TestDisconnectDropsTasks(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, _ := join(t, s)
	c, connC := join(t, s)
	forceRoles(s, a.ID)

	done := game.NewTask("empty garbage", gamemap.Storage, 1)
	require.NoError(t, done.Start())
	_, err := done.Advance()
	require.NoError(t, err)

	s.tasks = map[game.PlayerID][]*game.Task{
		b.ID: {game.NewTask("fix wiring", gamemap.Electrical, 3)},
		c.ID: {done},
	}

	// the only unfinished tasks leave with their owner
	connC.clear()
	s.handleLeave(b)

	require.Nil(t, s.Clients.GetClientByID(b.ID))
	require.NotContains(t, s.tasks, b.ID)
	require.Len(t, connC.typed(protocol.PlayerDisconnectedMsg), 1)
	require.Len(t, connC.typed(protocol.CrewVictoryMsg), 1)

	// a second leave for the same client is a no-op
	s.handleLeave(b)
}

func TestEndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig())
	a, _ := join(t, s)
	b, connB := join(t, s)
	c, connC := join(t, s)
	require.True(t, s.GameStarted)
	forceRoles(s, a.ID)

	// A and B head to electrical together, C follows the bodies trail
	a.Location = gamemap.Electrical
	b.Location = gamemap.Electrical
	c.Location = gamemap.Electrical

	s.handleAction(a, &protocol.Kill{Target: b.ID})
	require.False(t, b.Alive)
	require.Equal(t, gamemap.Electrical, s.Bodies[b.ID])
	require.Len(t, connB.typed(protocol.PlayerKilledMsg), 1)

	s.handleAction(c, &protocol.Report{})
	require.Empty(t, s.Bodies)
	require.Equal(t, phase.Discussion, s.Phase)

	s.handlePhaseExpiry(phaseExpiry{seq: s.scheduler.seq, to: phase.Voting})
	require.Equal(t, phase.Voting, s.Phase)

	// two living voters split between skip and the dead man
	s.handleAction(a, &protocol.Vote{Vote: game.VoteSkip})
	connC.clear()
	s.handleAction(c, &protocol.Vote{Vote: b.ID})

	require.Equal(t, phase.FreeRoam, s.Phase)
	require.True(t, a.Alive)
	require.Len(t, connC.typed(protocol.NoEjectionMsg), 1)
}

func TestSubmitAfterShutdown(t *testing.T) {
	s := New(context.Background(), testConfig())
	client, _ := join(t, s)

	s.Cancel()

	// with the loop gone and the queue full, neither call may block
	for i := 0; i < cap(s.events); i++ {
		s.events <- statusRequest{result: make(chan Status, 1)}
	}

	done := make(chan struct{})
	go func() {
		s.Submit(client, &protocol.Move{Destination: gamemap.Medbay})
		s.Leave(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit or Leave blocked after shutdown")
	}
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, testConfig())
	go s.Poll(ctx)

	conn := &fakeConn{}
	client, err := s.Connect(ctx, uuid.New(), conn)
	require.NoError(t, err)
	require.Equal(t, game.PlayerID("Alice"), client.ID)

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, status.NumPlayers)
	require.Equal(t, "free_roam", status.Phase)
	require.False(t, status.GameStarted)

	s.Submit(client, &protocol.Move{Destination: gamemap.Medbay})

	// GetStatus serializes behind the move in the engine queue
	_, err = s.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, gamemap.Medbay, client.Location)

	s.Leave(client)
	status, err = s.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, status.NumPlayers)
}
