package game

import (
	"math/rand"

	"github.com/cfoust/skeld/pkg/game/role"
)

// ImpostorCount applies the ratio policy: at least one impostor, then one
// more per 1/ratio players.
func ImpostorCount(numPlayers int, ratio float64) int {
	count := int(float64(numPlayers) * ratio)
	if count < 1 {
		count = 1
	}
	return count
}

// AssignRoles picks impostors by uniform sample without replacement and
// makes everyone else a Crewmate.
func AssignRoles(ids []PlayerID, ratio float64, rng *rand.Rand) map[PlayerID]role.ID {
	roles := make(map[PlayerID]role.ID, len(ids))
	for _, id := range ids {
		roles[id] = role.Crewmate
	}

	numImpostors := ImpostorCount(len(ids), ratio)
	for _, index := range rng.Perm(len(ids))[:numImpostors] {
		roles[ids[index]] = role.Impostor
	}

	return roles
}
