package gameserver

import "time"

type Config struct {
	Description string

	// Role assignment fires once the roster reaches MinPlayers. The
	// impostor count follows the ratio policy: max(1, floor(N*ratio)).
	MinPlayers    int
	ImpostorRatio float64

	DiscussionDuration time.Duration
	VotingDuration     time.Duration
	TaskTickInterval   time.Duration

	// Emergency meetings each player may call per session.
	EmergencyMeetings int

	// When true, connections arriving after role assignment are refused.
	LockJoinsAfterStart bool

	TasksPerPlayer int
}
